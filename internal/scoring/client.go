package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal/utils"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_scorer.go github.com/scythe504/sketchoff-backend/internal/scoring Scorer

// Scorer rates a drawing against a topic. It never fails: every error path
// resolves to a fallback score.
type Scorer interface {
	Score(ctx context.Context, topic, image string) int
}

const (
	DefaultTimeout = 10 * time.Second

	MinScore = 0
	MaxScore = 100

	// used when the rating service is configured but the call fails
	FailureFallbackMin = 50
	FailureFallbackMax = 79

	// used when no rating service is configured
	OfflineFallbackMin = 60
	OfflineFallbackMax = 99
)

var ErrUnexpectedStatus = errors.New("unexpected status from rating service")

type Config struct {
	// BaseURL of the rating service. Empty means offline mode.
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

type rateRequest struct {
	Topic string `json:"topic"`
	Image string `json:"image"`
}

type rateResponse struct {
	Score *float64 `json:"score"`
}

func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("scoring config is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		http:    httpClient,
		logger:  logger.Named("scoring"),
	}, nil
}

func (c *Client) Configured() bool {
	return c.baseURL != ""
}

func (c *Client) Score(ctx context.Context, topic, image string) int {
	if !c.Configured() {
		return utils.RandomIntBetween(OfflineFallbackMin, OfflineFallbackMax)
	}

	score, err := c.rate(ctx, topic, image)
	if err != nil {
		fallback := utils.RandomIntBetween(FailureFallbackMin, FailureFallbackMax)
		c.logger.Warn("rating service call failed, using fallback score",
			zap.String("topic", topic),
			zap.Int("fallback", fallback),
			zap.Error(err))
		return fallback
	}
	return score
}

func (c *Client) rate(ctx context.Context, topic, image string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(rateRequest{Topic: topic, Image: image})
	if err != nil {
		return 0, fmt.Errorf("encode rate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rate", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post rate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var out rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode rate response: %w", err)
	}
	if out.Score == nil {
		return 0, errors.New("rate response has no score")
	}

	return clamp(int(*out.Score)), nil
}

func clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}
