package utils

import (
	"math/rand/v2"
)

// =============================================================================
// TOPICS
// =============================================================================

// Topics is the fixed prompt set a round topic is drawn from.
var Topics = []string{"Cat", "Tree", "Sun", "House", "Car", "Apple", "Robot", "Fish", "Moon", "Star"}

// RandomTopic picks a topic uniformly at random. An empty set falls back to Topics.
func RandomTopic(topics []string) string {
	if len(topics) == 0 {
		topics = Topics
	}
	return topics[rand.IntN(len(topics))]
}

// IsTopic reports whether topic belongs to the fixed set.
func IsTopic(topic string) bool {
	for _, t := range Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// =============================================================================
// RANDOM NUMBERS
// =============================================================================

// RandomIntBetween returns a uniform integer in [lo, hi].
func RandomIntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.IntN(hi-lo+1)
}
