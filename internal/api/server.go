package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/domain"
	"github.com/flare-risk-server/internal/middleware"
	"github.com/flare-risk-server/internal/service"
	"github.com/flare-risk-server/internal/symptomlog"
)

// PredictionHistory reads the prediction audit trail.
type PredictionHistory interface {
	GetByID(ctx context.Context, id string) (*service.Prediction, error)
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*service.Prediction, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	predictor     *service.Predictor
	logger        *logrus.Logger
	store         symptomlog.Store
	history       PredictionHistory
	checks        map[string]HealthCheck
	limiter       *middleware.ClientRateLimiter
	upgrader      websocket.Upgrader
	router        *gin.Engine
	server        *http.Server
	startedAt     time.Time
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server)

// WithSymptomStore exposes the durable symptom log over HTTP.
func WithSymptomStore(store symptomlog.Store) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// WithPredictionHistory exposes the prediction audit trail over HTTP.
func WithPredictionHistory(history PredictionHistory) ServerOption {
	return func(s *Server) {
		s.history = history
	}
}

// WithHealthCheck adds a named dependency probe to /health.
func WithHealthCheck(name string, check HealthCheck) ServerOption {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, predictor *service.Predictor, logger *logrus.Logger, opts ...ServerOption) *Server {
	cfg := configManager.GetConfig()

	if gin.Mode() != gin.TestMode {
		if configManager.IsDevelopment() && cfg.Logging.Level == "debug" {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	server := &Server{
		configManager: configManager,
		predictor:     predictor,
		logger:        logger,
		checks:        make(map[string]HealthCheck),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(server)
	}

	if cfg.Server.RateLimit > 0 {
		server.limiter = middleware.NewClientRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, 10*time.Minute)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(server.limiter))
	server.router = router

	server.setupRoutes(cfg.Server.RequestTimeout)

	return server
}

// Handler returns the HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if s.limiter != nil {
		go s.sweepLimiter(ctx)
	}

	s.logger.WithFields(logrus.Fields{
		"addr": addr,
		"tls":  cfg.TLSEnabled,
	}).Info("HTTP server listening")

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.limiter.Sweep(); removed > 0 {
				s.logger.WithField("removed", removed).Debug("Dropped idle rate limit buckets")
			}
		}
	}
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(requestTimeout time.Duration) {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")

	// The stream is long-lived and stays outside the request timeout.
	v1.GET("/sessions/:id/stream", s.handleStream)

	timed := v1.Group("", middleware.RequestTimeout(requestTimeout))
	{
		timed.POST("/predict", s.handlePredict)

		timed.GET("/sessions/:id/log", s.handleSessionLog)
		timed.GET("/sessions/:id/trend", s.handleSessionTrend)
		timed.DELETE("/sessions/:id", s.handleDeleteSession)
		timed.GET("/sessions/:id/predictions", s.handleSessionPredictions)
		timed.GET("/predictions/:id", s.handleGetPrediction)

		timed.GET("/severities", s.handleSeverities)
		timed.GET("/triggers", s.handleTriggers)
		timed.POST("/triggers/detect", s.handleDetectTriggers)

		timed.GET("/symptom-log", s.handleListSymptomLog)
		timed.GET("/symptom-log/export", s.handleExportSymptomLog)
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Correlation-ID, "+SessionHeader)
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID, "+SessionHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
