package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flare-risk-server/internal/domain"
)

func baseInputs() domain.FeatureInputs {
	return domain.FeatureInputs{
		FoodTrigger:      domain.SeverityModerate,
		Stress:           domain.SeverityHigh,
		PreviousSymptoms: domain.SeverityNone,
		AbdominalPain:    domain.SeverityMild,
		Bloating:         domain.SeverityNone,
		SleepHours:       6,
		WaterLiters:      2.5,
		Exercised:        true,
		ManualTriggers:   domain.NewTriggerSet("Green chili"),
		DetectedTriggers: domain.NewTriggerSet("pickle"),
	}
}

func TestBuildFeatures(t *testing.T) {
	vector, err := BuildFeatures(baseInputs())

	require.NoError(t, err)
	assert.Equal(t, domain.FeatureVector{5, 7, 6, 2.5, 1, 0, 2}, vector)
}

func TestBuildFeatures_TriggerCount(t *testing.T) {
	tests := []struct {
		name     string
		manual   []string
		detected []string
		expected float64
	}{
		{"distinct spellings count twice", []string{"Pickles"}, []string{"pickle"}, 2},
		{"case-only difference counts once", []string{"Coffee"}, []string{"coffee"}, 1},
		{"no triggers", nil, nil, 0},
		{"manual only", []string{"Garam masala", "Fried snacks"}, nil, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInputs()
			in.ManualTriggers = domain.NewTriggerSet(tt.manual...)
			in.DetectedTriggers = domain.NewTriggerSet(tt.detected...)

			vector, err := BuildFeatures(in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, vector[domain.FeatureTriggerCount])
		})
	}
}

func TestBuildFeatures_RangeViolation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.FeatureInputs)
		field  string
	}{
		{"water above max", func(in *domain.FeatureInputs) { in.WaterLiters = 6.0 }, FieldWaterLiters},
		{"water below min", func(in *domain.FeatureInputs) { in.WaterLiters = 0.4 }, FieldWaterLiters},
		{"sleep below min", func(in *domain.FeatureInputs) { in.SleepHours = 2 }, FieldSleepHours},
		{"sleep above max", func(in *domain.FeatureInputs) { in.SleepHours = 11 }, FieldSleepHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInputs()
			tt.mutate(&in)

			vector, err := BuildFeatures(in)

			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrRangeViolation))
			assert.Equal(t, domain.FeatureVector{}, vector)

			var rangeErr *domain.RangeError
			require.True(t, errors.As(err, &rangeErr))
			assert.Equal(t, tt.field, rangeErr.Field)
		})
	}
}

func TestBuildFeatures_Bounds(t *testing.T) {
	in := baseInputs()
	in.SleepHours = domain.SleepHoursMin
	in.WaterLiters = domain.WaterLitersMax

	vector, err := BuildFeatures(in)
	require.NoError(t, err)
	assert.Equal(t, 3.0, vector[domain.FeatureSleepHours])
	assert.Equal(t, 5.0, vector[domain.FeatureWaterLiters])
}

func TestBuildFeatures_UnknownSeverity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.FeatureInputs)
		field  string
	}{
		{"food trigger", func(in *domain.FeatureInputs) { in.FoodTrigger = "Huge" }, FieldFoodTrigger},
		{"stress lowercase", func(in *domain.FeatureInputs) { in.Stress = "high" }, FieldStress},
		{"previous symptoms empty", func(in *domain.FeatureInputs) { in.PreviousSymptoms = "" }, FieldPreviousSymptoms},
		{"abdominal pain", func(in *domain.FeatureInputs) { in.AbdominalPain = "Extreme" }, FieldAbdominalPain},
		{"bloating", func(in *domain.FeatureInputs) { in.Bloating = "Severe" }, FieldBloating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInputs()
			tt.mutate(&in)

			_, err := BuildFeatures(in)

			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUnknownSeverity))

			var sevErr *domain.SeverityError
			require.True(t, errors.As(err, &sevErr))
			assert.Equal(t, tt.field, sevErr.Field)
		})
	}
}

func TestBuildFeatures_SeverityCheckedBeforeRange(t *testing.T) {
	in := baseInputs()
	in.Stress = "Unknown"
	in.WaterLiters = 9

	_, err := BuildFeatures(in)
	assert.True(t, errors.Is(err, domain.ErrUnknownSeverity))
}

func TestBuildFeatures_Deterministic(t *testing.T) {
	in := baseInputs()

	first, err := BuildFeatures(in)
	require.NoError(t, err)
	second, err := BuildFeatures(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, in.ManualTriggers.Len(), "inputs must not be modified")
}
