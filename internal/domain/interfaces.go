package domain

import (
	"context"
)

// RiskScorer turns a feature vector into a flare-up verdict. Implementations
// are constructed once and are read-only afterwards; any failure must be
// reported as an error, never as a false verdict.
type RiskScorer interface {
	Score(ctx context.Context, vector FeatureVector) (bool, error)
}

// RiskScorerFunc adapts a function to the RiskScorer interface.
type RiskScorerFunc func(ctx context.Context, vector FeatureVector) (bool, error)

// Score calls f.
func (f RiskScorerFunc) Score(ctx context.Context, vector FeatureVector) (bool, error) {
	return f(ctx, vector)
}

// SymptomLogSink durably appends finalized records. It may be unavailable;
// callers treat that as degraded, not fatal.
type SymptomLogSink interface {
	Append(ctx context.Context, record SymptomLogRecord) error
}

// SymptomLogSinkFunc adapts a function to the SymptomLogSink interface.
type SymptomLogSinkFunc func(ctx context.Context, record SymptomLogRecord) error

// Append calls f.
func (f SymptomLogSinkFunc) Append(ctx context.Context, record SymptomLogRecord) error {
	return f(ctx, record)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
