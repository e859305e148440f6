package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadTopicsCSV loads a custom topic set from the first column of a CSV
// file. A leading "topic" header, blank cells and duplicates are skipped.
func ReadTopicsCSV(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open topics file: %w", err)
	}
	defer f.Close()

	return ParseTopics(f)
}

func ParseTopics(r io.Reader) ([]string, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse topics csv: %w", err)
	}

	seen := make(map[string]bool)
	var topics []string
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		topic := strings.TrimSpace(record[0])
		if topic == "" || (i == 0 && strings.EqualFold(topic, "topic")) {
			continue
		}
		key := strings.ToLower(topic)
		if seen[key] {
			continue
		}
		seen[key] = true
		topics = append(topics, topic)
	}

	if len(topics) == 0 {
		return nil, errors.New("topics file has no topics")
	}
	return topics, nil
}
