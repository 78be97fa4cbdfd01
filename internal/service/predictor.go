package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/domain"
)

// Evaluate asks scorer for a verdict on vector. A missing scorer or any
// scorer failure is reported as domain.ErrScorerUnavailable; a failure is
// never turned into a false verdict.
func Evaluate(ctx context.Context, vector domain.FeatureVector, scorer domain.RiskScorer) (bool, error) {
	if scorer == nil {
		return false, domain.ScorerUnavailable(fmt.Errorf("no risk scorer configured"))
	}
	verdict, err := scorer.Score(ctx, vector)
	if err != nil {
		return false, domain.ScorerUnavailable(err)
	}
	return verdict, nil
}

// ToRecord builds the log record for a verdict on the calendar day of date.
func ToRecord(date time.Time, flareLikely bool, abdominalPain, bloating domain.SeverityLevel) (domain.SymptomLogRecord, error) {
	pain, err := domain.EncodeField(FieldAbdominalPain, abdominalPain)
	if err != nil {
		return domain.SymptomLogRecord{}, err
	}
	bloat, err := domain.EncodeField(FieldBloating, bloating)
	if err != nil {
		return domain.SymptomLogRecord{}, err
	}
	return domain.SymptomLogRecord{
		Date:          domain.CalendarDay(date),
		FlareLikely:   flareLikely,
		AbdominalPain: pain,
		Bloating:      bloat,
	}, nil
}

// Prediction is the outcome of one form submission.
type Prediction struct {
	ID               string                  `json:"id"`
	SessionID        string                  `json:"session_id"`
	FlareLikely      bool                    `json:"flare_likely"`
	Vector           domain.FeatureVector    `json:"vector"`
	Triggers         domain.TriggerSet       `json:"triggers"`
	DetectedTriggers domain.TriggerSet       `json:"detected_triggers"`
	Record           domain.SymptomLogRecord `json:"record"`
	Advice           domain.Advice           `json:"advice"`
	CreatedAt        time.Time               `json:"created_at"`
}

// Predictor runs the detect, build, evaluate, record pipeline for a session.
type Predictor struct {
	logger   *logrus.Logger
	detector *TriggerDetector
	scorer   domain.RiskScorer
	sessions *SessionRegistry
	recorder *Recorder
	now      func() time.Time
}

// PredictorOption customizes a Predictor.
type PredictorOption func(*Predictor)

// WithClock overrides the clock used to date records.
func WithClock(now func() time.Time) PredictorOption {
	return func(p *Predictor) {
		p.now = now
	}
}

// WithDetector overrides the default keyword detector.
func WithDetector(detector *TriggerDetector) PredictorOption {
	return func(p *Predictor) {
		p.detector = detector
	}
}

// NewPredictor creates a predictor. recorder may be nil, in which case
// records are only kept in the session's rolling log.
func NewPredictor(logger *logrus.Logger, scorer domain.RiskScorer, sessions *SessionRegistry, recorder *Recorder, opts ...PredictorOption) *Predictor {
	p := &Predictor{
		logger:   logger,
		detector: NewTriggerDetector(nil),
		scorer:   scorer,
		sessions: sessions,
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Detector returns the keyword detector in use.
func (p *Predictor) Detector() *TriggerDetector {
	return p.detector
}

// Sessions returns the session registry.
func (p *Predictor) Sessions() *SessionRegistry {
	return p.sessions
}

// Predict scores one submission. Nothing is recorded unless a verdict was
// produced. Persisting the record to the external sink happens in the
// background and never fails the prediction.
func (p *Predictor) Predict(ctx context.Context, sessionID string, req domain.PredictionRequest) (*Prediction, error) {
	startTime := time.Now()

	detected := p.detector.Detect(req.FoodsEaten)
	inputs := req.FeatureInputs(detected)

	vector, err := BuildFeatures(inputs)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error_code": domain.ErrorCode(err),
		}).WithError(err).Info("Rejected prediction input")
		return nil, err
	}

	verdict, err := Evaluate(ctx, vector, p.scorer)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
		}).WithError(err).Error("Risk scorer failed")
		return nil, err
	}

	createdAt := p.now()
	record, err := ToRecord(createdAt, verdict, req.AbdominalPain, req.Bloating)
	if err != nil {
		return nil, err
	}
	record.RomeCriteriaMet = req.RomeCriteriaMet

	prediction := &Prediction{
		ID:               uuid.New().String(),
		SessionID:        sessionID,
		FlareLikely:      verdict,
		Vector:           vector,
		Triggers:         inputs.ManualTriggers.Union(detected),
		DetectedTriggers: detected,
		Record:           record,
		Advice:           domain.AdviceFor(verdict),
		CreatedAt:        createdAt,
	}

	if p.sessions != nil && sessionID != "" {
		p.sessions.Log(sessionID).Append(record)
	}
	if p.recorder != nil {
		p.recorder.Record(prediction)
	}

	p.logger.WithFields(logrus.Fields{
		"session_id":    sessionID,
		"prediction_id": prediction.ID,
		"flare_likely":  verdict,
		"trigger_count": prediction.Triggers.Len(),
		"duration":      time.Since(startTime),
	}).Info("Prediction completed")

	return prediction, nil
}
