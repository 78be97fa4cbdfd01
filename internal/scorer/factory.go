package scorer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/domain"
)

// New builds the scorer selected by config. A remote scorer is wrapped with
// the verdict cache; its Redis tier is used when cache.RedisURL is set.
func New(config domain.ScorerConfig, cache domain.CacheConfig, logger *logrus.Logger) (domain.RiskScorer, error) {
	switch config.Kind {
	case "", domain.ScorerLogistic:
		s, err := NewReferenceScorer(config.Iterations)
		if err != nil {
			return nil, fmt.Errorf("failed to fit reference model: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"kind":       domain.ScorerLogistic,
			"iterations": config.Iterations,
		}).Info("Risk scorer ready")
		return s, nil

	case domain.ScorerRemote:
		remote, err := NewRemoteScorer(RemoteConfig{
			BaseURL:   config.BaseURL,
			APIKey:    config.APIKey,
			Timeout:   config.Timeout,
			RateLimit: config.RateLimit,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"kind":     domain.ScorerRemote,
			"base_url": config.BaseURL,
		}).Info("Risk scorer ready")

		cached, err := NewCachedScorer(remote, cache, config.CacheTTL, logger)
		if err != nil && cache.RedisURL != "" {
			logger.WithError(err).Warn("Redis verdict cache unavailable, caching in memory only")
			cache.RedisURL = ""
			cached, err = NewCachedScorer(remote, cache, config.CacheTTL, logger)
		}
		if err != nil {
			logger.WithError(err).Warn("Verdict cache unavailable, scoring without cache")
			return remote, nil
		}
		return cached, nil

	default:
		return nil, fmt.Errorf("unknown scorer kind %q", config.Kind)
	}
}
