package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/domain"
)

// PredictionAuditor keeps a full audit trail of predictions.
type PredictionAuditor interface {
	SavePrediction(ctx context.Context, prediction *Prediction) error
}

// RecorderStats counts background persistence outcomes.
type RecorderStats struct {
	Appended  int64 `json:"appended"`
	Failed    int64 `json:"failed"`
	Audited   int64 `json:"audited"`
	AuditFail int64 `json:"audit_failed"`
}

// Recorder persists finalized records without holding up the caller.
type Recorder struct {
	logger  *logrus.Logger
	sink    domain.SymptomLogSink
	auditor PredictionAuditor
	timeout time.Duration
	wg      sync.WaitGroup

	appended  atomic.Int64
	failed    atomic.Int64
	audited   atomic.Int64
	auditFail atomic.Int64
}

// NewRecorder creates a recorder. Either sink or auditor may be nil.
func NewRecorder(logger *logrus.Logger, sink domain.SymptomLogSink, auditor PredictionAuditor, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Recorder{
		logger:  logger,
		sink:    sink,
		auditor: auditor,
		timeout: timeout,
	}
}

// Record starts persisting prediction in the background. The write is not
// tied to any request context, so it outlives the request that produced it.
func (r *Recorder) Record(prediction *Prediction) {
	if r.sink == nil && r.auditor == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if r.sink != nil {
			r.appendRecord(ctx, prediction)
		}
		if r.auditor != nil {
			if err := r.auditor.SavePrediction(ctx, prediction); err != nil {
				r.auditFail.Add(1)
				r.logger.WithFields(logrus.Fields{
					"prediction_id": prediction.ID,
				}).WithError(err).Warn("Failed to save prediction audit entry")
			} else {
				r.audited.Add(1)
			}
		}
	}()
}

func (r *Recorder) appendRecord(ctx context.Context, prediction *Prediction) {
	err := r.sink.Append(ctx, prediction.Record)
	if err == nil {
		r.appended.Add(1)
		return
	}

	r.failed.Add(1)
	if !errors.Is(err, domain.ErrSinkUnavailable) {
		err = domain.SinkUnavailable(err)
	}
	r.logger.WithFields(logrus.Fields{
		"prediction_id": prediction.ID,
		"session_id":    prediction.SessionID,
		"date":          prediction.Record.Date,
	}).WithError(err).Warn("Symptom log sink unavailable, record kept in session only")
}

// Wait blocks until all pending writes have finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// Stats returns the persistence counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Appended:  r.appended.Load(),
		Failed:    r.failed.Load(),
		Audited:   r.audited.Load(),
		AuditFail: r.auditFail.Load(),
	}
}
