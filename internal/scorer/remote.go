package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/flare-risk-server/internal/domain"
)

// RemoteConfig configures a RemoteScorer.
type RemoteConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit int
}

// ScoreRequest is the body posted to the remote model.
type ScoreRequest struct {
	Features []float64          `json:"features"`
	Named    map[string]float64 `json:"named"`
}

// ScoreResponse is the remote model's answer.
type ScoreResponse struct {
	FlareLikely bool     `json:"flare_likely"`
	Probability *float64 `json:"probability,omitempty"`
}

// RemoteScorer delegates scoring to an HTTP model service.
type RemoteScorer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewRemoteScorer creates a remote scorer posting to <BaseURL>/score.
func NewRemoteScorer(config RemoteConfig, logger *logrus.Logger) (*RemoteScorer, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("remote scorer base URL is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 20
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "RemoteScorer",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker changed state")
		},
	})

	return &RemoteScorer{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   breaker,
		logger:    logger,
	}, nil
}

// Score posts vector to the remote model.
func (r *RemoteScorer) Score(ctx context.Context, vector domain.FeatureVector) (bool, error) {
	if err := r.rateLimit.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.post(ctx, vector)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return false, fmt.Errorf("remote scorer unavailable (circuit breaker open): %w", err)
		}
		return false, fmt.Errorf("remote scorer request failed: %w", err)
	}

	return result.(*ScoreResponse).FlareLikely, nil
}

// State returns the circuit breaker state.
func (r *RemoteScorer) State() gobreaker.State {
	return r.breaker.State()
}

func (r *RemoteScorer) post(ctx context.Context, vector domain.FeatureVector) (*ScoreResponse, error) {
	body, err := json.Marshal(ScoreRequest{Features: vector.Slice(), Named: vector.Named()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote scorer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var scored ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&scored); err != nil {
		return nil, fmt.Errorf("failed to decode score response: %w", err)
	}
	return &scored, nil
}
