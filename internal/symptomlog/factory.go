package symptomlog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/domain"
)

// DefaultSQLitePath returns ~/.flare-risk/symptom_log.db, or a relative
// path when the home directory is unknown.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".flare-risk", "symptom_log.db")
	}
	return filepath.Join(home, ".flare-risk", "symptom_log.db")
}

// Open builds the sink selected by config. databaseURL is used by the
// postgres kind. The none kind yields a nil sink and no error.
func Open(config domain.SinkConfig, databaseURL string, logger *logrus.Logger) (Sink, error) {
	switch config.Kind {
	case domain.SinkNone:
		logger.Info("Symptom log sink disabled")
		return nil, nil

	case "", domain.SinkSQLite:
		path := config.SQLitePath
		if path == "" {
			path = DefaultSQLitePath()
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite symptom log: %w", err)
		}
		logger.WithField("path", path).Info("Symptom log sink ready")
		return store, nil

	case domain.SinkPostgres:
		store, err := NewPostgresStoreFromURL(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres symptom log: %w", err)
		}
		logger.WithField("kind", domain.SinkPostgres).Info("Symptom log sink ready")
		return store, nil

	case domain.SinkWebhook:
		sink, err := NewWebhookSink(config.WebhookURL, config.Timeout, config.RateLimit, logger)
		if err != nil {
			return nil, err
		}
		logger.WithField("kind", domain.SinkWebhook).Info("Symptom log sink ready")
		return sink, nil

	default:
		return nil, fmt.Errorf("unknown sink kind %q", config.Kind)
	}
}
