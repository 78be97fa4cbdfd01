// Package mcp exposes the flare risk pipeline as MCP tools.
// The lite server needs no external services: it scores with the reference
// model and keeps the symptom log in SQLite.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	litecfg "github.com/flare-risk-server/internal/config"
	"github.com/flare-risk-server/internal/domain"
	"github.com/flare-risk-server/internal/logging"
	"github.com/flare-risk-server/internal/scorer"
	"github.com/flare-risk-server/internal/service"
	"github.com/flare-risk-server/internal/symptomlog"
)

// ServerName is reported to MCP clients.
const ServerName = "flare-risk-mcp-lite"

// ServerVersion is reported to MCP clients.
const ServerVersion = "v0.1.0"

// LiteServer is a lightweight MCP server that requires no external services.
type LiteServer struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server
	predictor *service.Predictor
	recorder  *service.Recorder
	store     symptomlog.Store
	scorer    domain.RiskScorer
	logger    *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithSymptomStore sets a custom symptom log store.
func WithSymptomStore(store symptomlog.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.store = store
		return nil
	}
}

// WithScorer replaces the reference model.
func WithScorer(risk domain.RiskScorer) LiteServerOption {
	return func(s *LiteServer) error {
		if risk == nil {
			return errors.New("scorer must not be nil")
		}
		s.scorer = risk
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		// stdout belongs to the stdio transport.
		logger: logging.FromConfig(domain.LoggingConfig{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Output: "stderr",
		}),
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if server.store == nil {
		store, err := symptomlog.NewSQLiteStore(cfg.SymptomLogDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create symptom log store: %w", err)
		}
		server.store = store
	}

	if server.scorer == nil {
		reference, err := scorer.NewReferenceScorer(cfg.ScorerIterations)
		if err != nil {
			return nil, fmt.Errorf("failed to fit reference model: %w", err)
		}
		server.scorer = reference
	}

	sessions, err := service.NewSessionRegistry(cfg.MaxSessions, cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to create session registry: %w", err)
	}

	server.recorder = service.NewRecorder(server.logger, server.store, nil, cfg.SinkTimeout)
	server.predictor = service.NewPredictor(server.logger, server.scorer, sessions, server.recorder)

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)
	server.registerTools()
	server.registerResources()

	server.logger.Info("Lite server initialized successfully")
	return server, nil
}

// Start serves MCP on the configured transport until ctx is cancelled.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.WithField("transport_type", s.config.Transport).Info("Starting flare risk MCP server (Lite)")

	switch s.config.Transport {
	case "", "stdio":
		if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil

	case "http":
		return s.serveHTTP(ctx)

	default:
		return fmt.Errorf("unsupported transport %q", s.config.Transport)
	}
}

func (s *LiteServer) serveHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.WithField("port", s.config.HTTPPort).Info("MCP HTTP transport listening")

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("MCP HTTP transport failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// Close drains pending symptom log writes and releases the store.
func (s *LiteServer) Close() error {
	s.recorder.Wait()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close symptom log store")
			return err
		}
	}
	return nil
}

// Predictor returns the pipeline behind the tools.
func (s *LiteServer) Predictor() *service.Predictor {
	return s.predictor
}

// SymptomStore returns the symptom log store for external access.
func (s *LiteServer) SymptomStore() symptomlog.Store {
	return s.store
}
