// Package bootstrap wires the scoring pipeline from a loaded configuration.
// It is shared by the HTTP server and the flarectl command.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/database"
	"github.com/flare-risk-server/internal/domain"
	"github.com/flare-risk-server/internal/repository"
	"github.com/flare-risk-server/internal/scorer"
	"github.com/flare-risk-server/internal/service"
	"github.com/flare-risk-server/internal/symptomlog"
	"github.com/flare-risk-server/migrations"
)

// Settings is the subset of the configuration manager the pipeline needs.
type Settings interface {
	GetConfig() *domain.Config
	NeedsDatabase() bool
	GetDatabaseURL() string
}

// Pipeline holds every component built from the configuration.
// DB and Predictions are nil unless the database is enabled; Store is nil
// when the sink cannot be queried.
type Pipeline struct {
	Scorer      domain.RiskScorer
	Sink        symptomlog.Sink
	Store       symptomlog.Store
	DB          *database.DB
	Predictions *repository.PredictionRepository
	Sessions    *service.SessionRegistry
	Recorder    *service.Recorder
	Predictor   *service.Predictor

	logger *logrus.Logger
}

// Options tunes Build.
type Options struct {
	// Migrate applies pending schema migrations once the database is reachable.
	Migrate bool
	// SkipDatabase leaves the audit pool closed even when the database is enabled.
	SkipDatabase bool
}

// Build constructs the pipeline. On error every component opened so far is
// closed again.
func Build(ctx context.Context, settings Settings, logger *logrus.Logger, opts Options) (p *Pipeline, err error) {
	cfg := settings.GetConfig()
	p = &Pipeline{logger: logger}
	defer func() {
		if err != nil {
			p.Close()
			p = nil
		}
	}()

	if cfg.Database.Enabled && !opts.SkipDatabase {
		p.DB, err = database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return p, fmt.Errorf("connecting to database: %w", err)
		}
		if opts.Migrate {
			if err = Migrate(ctx, settings.GetDatabaseURL(), cfg.Database.MigrationsPath, logger); err != nil {
				return p, err
			}
		}
		p.Predictions = repository.NewPredictionRepository(p.DB.Pool, logger)
	}

	p.Scorer, err = scorer.New(cfg.Scorer, cfg.Cache, logger)
	if err != nil {
		return p, fmt.Errorf("building risk scorer: %w", err)
	}

	databaseURL := ""
	if settings.NeedsDatabase() {
		databaseURL = settings.GetDatabaseURL()
	}
	p.Sink, err = symptomlog.Open(cfg.Sink, databaseURL, logger)
	if err != nil {
		return p, fmt.Errorf("opening symptom log sink: %w", err)
	}
	if store, ok := p.Sink.(symptomlog.Store); ok {
		p.Store = store
	}

	p.Sessions, err = service.NewSessionRegistry(cfg.Session.MaxSessions, cfg.Session.Window)
	if err != nil {
		return p, fmt.Errorf("creating session registry: %w", err)
	}

	var sink domain.SymptomLogSink
	if p.Sink != nil {
		sink = p.Sink
	}
	var auditor service.PredictionAuditor
	if p.Predictions != nil {
		auditor = p.Predictions
	}
	p.Recorder = service.NewRecorder(logger, sink, auditor, cfg.Sink.Timeout)

	var predictorOpts []service.PredictorOption
	if keywords := cfg.Triggers.Keywords; len(keywords) > 0 {
		predictorOpts = append(predictorOpts, service.WithDetector(service.NewTriggerDetector(keywords)))
	}
	p.Predictor = service.NewPredictor(logger, p.Scorer, p.Sessions, p.Recorder, predictorOpts...)

	return p, nil
}

// NewMigrator opens a runner over the migrations directory at path, or over
// the migrations bundled with the binary when path is empty.
func NewMigrator(databaseURL, path string, logger *logrus.Logger) (*database.MigrationRunner, error) {
	if path != "" {
		return database.NewMigrationRunner(databaseURL, path, logger)
	}
	return database.NewEmbeddedMigrationRunner(databaseURL, migrations.FS, logger)
}

// Migrate applies every pending migration found by NewMigrator.
func Migrate(ctx context.Context, databaseURL, path string, logger *logrus.Logger) error {
	runner, err := NewMigrator(databaseURL, path, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Close drains pending background writes, then releases the sink, the
// scorer and the database pool.
func (p *Pipeline) Close() error {
	if p.Recorder != nil {
		p.Recorder.Wait()
	}

	var errs []error
	if p.Sink != nil {
		errs = append(errs, p.Sink.Close())
	}
	if closer, ok := p.Scorer.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if p.DB != nil {
		p.DB.Close()
	}

	if err := errors.Join(errs...); err != nil {
		p.logger.WithError(err).Warn("Failed to release pipeline resources")
		return err
	}
	return nil
}
