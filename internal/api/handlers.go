package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/domain"
	"github.com/flare-risk-server/internal/logging"
	"github.com/flare-risk-server/internal/service"
)

// SessionHeader names the session a request belongs to.
const SessionHeader = "X-Session-ID"

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// PredictRequest is the body of POST /api/v1/predict. Omitted form fields
// take their initial form values.
type PredictRequest struct {
	SessionID string `json:"session_id,omitempty"`
	domain.PredictionRequest
}

// DetectRequest is the body of POST /api/v1/triggers/detect.
type DetectRequest struct {
	Text string `json:"text"`
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownSeverity), errors.Is(err, domain.ErrRangeViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrScorerUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	message, details := err.Error(), ""
	if status == http.StatusInternalServerError {
		logging.Entry(c.Request.Context(), s.logger).WithError(err).Error("Request failed")
		message = "Internal server error"
		if !s.configManager.IsProduction() {
			details = err.Error()
		}
	}
	c.JSON(status, domain.NewAPIError(domain.ErrorCode(err), message, details, c.GetString("correlation_id")))
}

func (s *Server) badRequest(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrCodeInvalidInput, "Invalid request body", details, c.GetString("correlation_id")))
}

// handleHealth reports process status and each dependency probe.
func (s *Server) handleHealth(c *gin.Context) {
	components := make(map[string]string, len(s.checks))
	status := "healthy"
	code := http.StatusOK

	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			components[name] = err.Error()
			if s.configManager.IsProduction() {
				components[name] = "unavailable"
			}
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":     status,
		"timestamp":  time.Now().UTC(),
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
		"sessions":   s.predictor.Sessions().Len(),
		"components": components,
	})
}

// handlePredict scores one tracking form submission.
func (s *Server) handlePredict(c *gin.Context) {
	req := PredictRequest{PredictionRequest: domain.DefaultPredictionRequest()}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	sessionID := c.GetHeader(SessionHeader)
	if sessionID == "" {
		sessionID = req.SessionID
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	logging.Entry(c.Request.Context(), s.logger).WithFields(logging.Sanitize(logrus.Fields{
		"session_id":  sessionID,
		"foods_eaten": req.FoodsEaten,
	})).Debug("Prediction requested")

	prediction, err := s.predictor.Predict(c.Request.Context(), sessionID, req.PredictionRequest)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header(SessionHeader, sessionID)
	c.JSON(http.StatusOK, prediction)
}

// handleSessionLog returns a session's rolling log, oldest first.
func (s *Server) handleSessionLog(c *gin.Context) {
	log, ok := s.predictor.Sessions().Lookup(c.Param("id"))
	if !ok {
		s.writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": c.Param("id"),
		"window":     log.Window(),
		"records":    log.Records(),
	})
}

// handleSessionTrend returns the rolling log as chart series.
func (s *Server) handleSessionTrend(c *gin.Context) {
	log, ok := s.predictor.Sessions().Lookup(c.Param("id"))
	if !ok {
		s.writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, log.Trend())
}

// handleDeleteSession forgets a session's in-memory state.
func (s *Server) handleDeleteSession(c *gin.Context) {
	if _, ok := s.predictor.Sessions().Lookup(c.Param("id")); !ok {
		s.writeError(c, domain.ErrNotFound)
		return
	}
	s.predictor.Sessions().Remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// handleSessionPredictions pages through the audit trail of a session.
func (s *Server) handleSessionPredictions(c *gin.Context) {
	if s.history == nil {
		s.writeError(c, domain.ErrNotFound)
		return
	}
	limit, offset, ok := s.pagination(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	predictions, err := s.history.ListBySession(ctx, c.Param("id"), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	total, err := s.history.CountBySession(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if predictions == nil {
		predictions = []*service.Prediction{}
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":  c.Param("id"),
		"total":       total,
		"predictions": predictions,
	})
}

// handleGetPrediction returns one audited prediction.
func (s *Server) handleGetPrediction(c *gin.Context) {
	if s.history == nil {
		s.writeError(c, domain.ErrNotFound)
		return
	}
	prediction, err := s.history.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prediction)
}

// handleSeverities lists the severity scale.
func (s *Server) handleSeverities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"severities": domain.SeverityCatalog()})
}

// handleTriggers lists the manual choices and the detector keywords.
func (s *Server) handleTriggers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"choices":  domain.CommonTriggerChoices,
		"keywords": s.predictor.Detector().Keywords(),
	})
}

// handleDetectTriggers runs the keyword detector over free text.
func (s *Server) handleDetectTriggers(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	detected := s.predictor.Detector().Detect(req.Text)
	c.JSON(http.StatusOK, gin.H{
		"triggers": detected,
		"count":    detected.Len(),
	})
}

// handleListSymptomLog pages through the durable symptom log.
func (s *Server) handleListSymptomLog(c *gin.Context) {
	if s.store == nil {
		s.writeError(c, domain.ErrNotFound)
		return
	}
	limit, offset, ok := s.pagination(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	entries, err := s.store.List(ctx, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"limit":   limit,
		"offset":  offset,
		"entries": entries,
	})
}

// handleExportSymptomLog streams the versioned JSON export.
func (s *Server) handleExportSymptomLog(c *gin.Context) {
	if s.store == nil {
		s.writeError(c, domain.ErrNotFound)
		return
	}
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="symptom_log.json"`)
	c.Status(http.StatusOK)
	if err := s.store.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		logging.Entry(c.Request.Context(), s.logger).WithError(err).Error("Symptom log export failed")
	}
}

func (s *Server) pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		s.badRequest(c, "limit must be a positive integer")
		return 0, 0, false
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		s.badRequest(c, "offset must be a non-negative integer")
		return 0, 0, false
	}
	return limit, offset, true
}
