// Package logging builds the logrus loggers shared by every binary and
// carries request correlation ids through contexts.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/domain"
)

// New creates a logger. Unknown levels fall back to info; any format other
// than "text" produces JSON.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

// NewWithOutput is New writing to w.
func NewWithOutput(level, format string, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}
	return logger
}

// FromConfig creates a logger from the logging section. Output "stderr"
// writes to standard error, which keeps stdout free for the stdio transport.
func FromConfig(cfg domain.LoggingConfig) *logrus.Logger {
	var w io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		w = os.Stderr
	}
	return NewWithOutput(cfg.Level, cfg.Format, w)
}

type correlationKey struct{}

// WithCorrelationID stores id in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// Entry returns a log entry tagged with the context's correlation id.
func Entry(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	if id := CorrelationID(ctx); id != "" {
		return logger.WithField("correlation_id", id)
	}
	return logrus.NewEntry(logger)
}

// Free text from the tracking form can carry health details.
var sensitivePatterns = []string{
	"password", "token", "secret", "key", "auth", "foods_eaten", "free_text",
}

const maxFieldLength = 200

// Sanitize returns a copy of fields with credentials and free text redacted
// and long strings truncated.
func Sanitize(fields logrus.Fields) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for k, v := range fields {
		out[k] = sanitizeField(k, v)
	}
	return out
}

func sanitizeField(key string, value interface{}) interface{} {
	lowerKey := strings.ToLower(key)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerKey, pattern) {
			return "[REDACTED]"
		}
	}

	if str, ok := value.(string); ok && len(str) > maxFieldLength {
		return str[:maxFieldLength] + "... [TRUNCATED]"
	}
	return value
}
