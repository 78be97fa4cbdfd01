package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flare-risk-server/internal/domain"
)

type recordingScorer struct {
	mu      sync.Mutex
	vectors []domain.FeatureVector
	verdict bool
	err     error
}

func (s *recordingScorer) Score(_ context.Context, vector domain.FeatureVector) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = append(s.vectors, vector)
	return s.verdict, s.err
}

type memorySink struct {
	mu      sync.Mutex
	records []domain.SymptomLogRecord
	err     error
}

func (s *memorySink) Append(_ context.Context, record domain.SymptomLogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

type memoryAuditor struct {
	mu          sync.Mutex
	predictions []*Prediction
}

func (a *memoryAuditor) SavePrediction(_ context.Context, prediction *Prediction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.predictions = append(a.predictions, prediction)
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func fixedClock() time.Time {
	return time.Date(2025, time.March, 15, 21, 30, 0, 0, time.UTC)
}

func newTestPredictor(t *testing.T, scorer domain.RiskScorer, sink domain.SymptomLogSink, auditor PredictionAuditor) (*Predictor, *Recorder) {
	t.Helper()
	sessions, err := NewSessionRegistry(16, DefaultWindow)
	require.NoError(t, err)
	recorder := NewRecorder(testLogger(), sink, auditor, time.Second)
	return NewPredictor(testLogger(), scorer, sessions, recorder, WithClock(fixedClock)), recorder
}

func TestPredictor_EndToEnd(t *testing.T) {
	scorer := &recordingScorer{verdict: true}
	sink := &memorySink{}
	auditor := &memoryAuditor{}
	predictor, recorder := newTestPredictor(t, scorer, sink, auditor)

	req := domain.PredictionRequest{
		FoodTrigger:      domain.SeverityHigh,
		Stress:           domain.SeveritySevere,
		PreviousSymptoms: domain.SeverityHigh,
		AbdominalPain:    domain.SeverityHigh,
		Bloating:         domain.SeverityMild,
		SleepHours:       4,
		WaterLiters:      1.0,
		Exercised:        false,
		FoodsEaten:       "pickle, coffee",
		RomeCriteriaMet:  true,
	}

	prediction, err := predictor.Predict(context.Background(), "session-1", req)
	require.NoError(t, err)
	recorder.Wait()

	require.Len(t, scorer.vectors, 1)
	assert.Equal(t, domain.FeatureVector{7, 10, 4, 1, 0, 7, 2}, scorer.vectors[0])

	assert.True(t, prediction.FlareLikely)
	assert.NotEmpty(t, prediction.ID)
	assert.Equal(t, []string{"pickle", "coffee"}, prediction.DetectedTriggers.Items())
	assert.Equal(t, domain.AdviceFor(true), prediction.Advice)

	expected := domain.SymptomLogRecord{
		Date:            "2025-03-15",
		FlareLikely:     true,
		AbdominalPain:   7,
		Bloating:        2,
		RomeCriteriaMet: true,
	}
	assert.Equal(t, expected, prediction.Record)
	assert.Equal(t, []domain.SymptomLogRecord{expected}, sink.records)
	assert.Equal(t, []domain.SymptomLogRecord{expected}, predictor.Sessions().Log("session-1").Records())

	require.Len(t, auditor.predictions, 1)
	assert.Equal(t, prediction.ID, auditor.predictions[0].ID)

	stats := recorder.Stats()
	assert.Equal(t, int64(1), stats.Appended)
	assert.Equal(t, int64(1), stats.Audited)
}

func TestPredictor_ManualAndDetectedTriggers(t *testing.T) {
	scorer := &recordingScorer{}
	predictor, recorder := newTestPredictor(t, scorer, nil, nil)

	req := domain.DefaultPredictionRequest()
	req.ManualTriggers = []string{"Pickles", "Caffeinated drinks"}
	req.FoodsEaten = "pickle, Coffee"

	prediction, err := predictor.Predict(context.Background(), "s", req)
	require.NoError(t, err)
	recorder.Wait()

	assert.Equal(t, []string{"Pickles", "Caffeinated drinks", "pickle", "coffee"}, prediction.Triggers.Items())
	assert.Equal(t, 4.0, scorer.vectors[0][domain.FeatureTriggerCount])
	assert.False(t, prediction.FlareLikely)
	assert.Equal(t, domain.AdviceFor(false), prediction.Advice)
}

func TestPredictor_ScorerFailure(t *testing.T) {
	cause := errors.New("model not loaded")
	scorer := &recordingScorer{verdict: true, err: cause}
	sink := &memorySink{}
	predictor, recorder := newTestPredictor(t, scorer, sink, nil)

	prediction, err := predictor.Predict(context.Background(), "s", domain.DefaultPredictionRequest())
	recorder.Wait()

	require.Error(t, err)
	assert.Nil(t, prediction)
	assert.True(t, errors.Is(err, domain.ErrScorerUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Empty(t, sink.records, "no record without a verdict")
	assert.Equal(t, 0, predictor.Sessions().Log("s").Len())
}

func TestPredictor_ValidationFailureSkipsScorer(t *testing.T) {
	scorer := &recordingScorer{}
	predictor, recorder := newTestPredictor(t, scorer, &memorySink{}, nil)

	req := domain.DefaultPredictionRequest()
	req.WaterLiters = 6.0

	_, err := predictor.Predict(context.Background(), "s", req)
	recorder.Wait()

	assert.True(t, errors.Is(err, domain.ErrRangeViolation))
	assert.Empty(t, scorer.vectors)
}

func TestPredictor_SinkFailureIsDegraded(t *testing.T) {
	sink := &memorySink{err: errors.New("quota exceeded")}
	predictor, recorder := newTestPredictor(t, &recordingScorer{verdict: true}, sink, nil)

	prediction, err := predictor.Predict(context.Background(), "s", domain.DefaultPredictionRequest())
	require.NoError(t, err)
	recorder.Wait()

	assert.True(t, prediction.FlareLikely)
	assert.Equal(t, 1, predictor.Sessions().Log("s").Len(), "record stays in the session log")
	assert.Equal(t, int64(1), recorder.Stats().Failed)
}

func TestPredictor_CancelledRequestStillPersists(t *testing.T) {
	sink := &memorySink{}
	predictor, recorder := newTestPredictor(t, &recordingScorer{}, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := predictor.Predict(ctx, "s", domain.DefaultPredictionRequest())
	require.NoError(t, err)
	cancel()
	recorder.Wait()

	assert.Len(t, sink.records, 1)
}

func TestEvaluate(t *testing.T) {
	vector := domain.FeatureVector{5, 7, 6, 2.5, 1, 0, 2}

	verdict, err := Evaluate(context.Background(), vector, domain.RiskScorerFunc(func(context.Context, domain.FeatureVector) (bool, error) {
		return true, nil
	}))
	require.NoError(t, err)
	assert.True(t, verdict)

	_, err = Evaluate(context.Background(), vector, nil)
	assert.True(t, errors.Is(err, domain.ErrScorerUnavailable))
}

func TestToRecord(t *testing.T) {
	local := time.FixedZone("IST", 5*3600+1800)
	date := time.Date(2025, time.June, 1, 0, 15, 0, 0, local)

	record, err := ToRecord(date, false, domain.SeverityModerate, domain.SeveritySevere)
	require.NoError(t, err)
	assert.Equal(t, domain.SymptomLogRecord{Date: "2025-06-01", FlareLikely: false, AbdominalPain: 5, Bloating: 10}, record)

	_, err = ToRecord(date, true, "Bad", domain.SeverityNone)
	assert.True(t, errors.Is(err, domain.ErrUnknownSeverity))
}
