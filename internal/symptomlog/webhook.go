package symptomlog

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

// WebhookPayload is posted once per record. Row carries the record in the
// column order of a spreadsheet log.
type WebhookPayload struct {
	Record domain.SymptomLogRecord `json:"record"`
	Row    []string                `json:"row"`
}

// WebhookSink appends records by posting them to an HTTP endpoint, such as a
// spreadsheet bridge.
type WebhookSink struct {
	url        string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewWebhookSink creates a sink posting to url.
func NewWebhookSink(url string, timeout time.Duration, rateLimit int, logger *logrus.Logger) (*WebhookSink, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if rateLimit == 0 {
		rateLimit = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "SymptomLogWebhook",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 2 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker changed state")
		},
	})

	return &WebhookSink{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(rateLimit), 1),
		breaker:   breaker,
	}, nil
}

// Append posts record. Every failure is reported as domain.ErrSinkUnavailable.
func (w *WebhookSink) Append(ctx context.Context, record domain.SymptomLogRecord) error {
	if err := w.rateLimit.Wait(ctx); err != nil {
		return domain.SinkUnavailable(fmt.Errorf("rate limit wait failed: %w", err))
	}

	_, err := w.breaker.Execute(func() (interface{}, error) {
		return nil, w.post(ctx, record)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.SinkUnavailable(fmt.Errorf("webhook circuit breaker open: %w", err))
		}
		return domain.SinkUnavailable(err)
	}
	return nil
}

func (w *WebhookSink) post(ctx context.Context, record domain.SymptomLogRecord) error {
	body, err := json.Marshal(WebhookPayload{Record: record, Row: record.Row()})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// State returns the circuit breaker state.
func (w *WebhookSink) State() gobreaker.State {
	return w.breaker.State()
}

// Close is a no-op; the sink holds no resources.
func (w *WebhookSink) Close() error {
	return nil
}
