package service

import (
	"github.com/flare-risk-server/internal/domain"
)

// Form field names used in validation errors.
const (
	FieldFoodTrigger      = "food_trigger"
	FieldStress           = "stress"
	FieldPreviousSymptoms = "previous_symptoms"
	FieldAbdominalPain    = "abdominal_pain"
	FieldBloating         = "bloating"
	FieldSleepHours       = "sleep_hours"
	FieldWaterLiters      = "water_liters"
)

// BuildFeatures validates the inputs and assembles the fixed-order feature
// vector. All five severity levels are checked before the sliders; the first
// failure is returned and no vector is produced.
func BuildFeatures(in domain.FeatureInputs) (domain.FeatureVector, error) {
	var vector domain.FeatureVector

	food, err := domain.EncodeField(FieldFoodTrigger, in.FoodTrigger)
	if err != nil {
		return domain.FeatureVector{}, err
	}
	stress, err := domain.EncodeField(FieldStress, in.Stress)
	if err != nil {
		return domain.FeatureVector{}, err
	}
	previous, err := domain.EncodeField(FieldPreviousSymptoms, in.PreviousSymptoms)
	if err != nil {
		return domain.FeatureVector{}, err
	}
	// Pain and bloating are recorded, not scored, but must still be valid.
	if _, err := domain.EncodeField(FieldAbdominalPain, in.AbdominalPain); err != nil {
		return domain.FeatureVector{}, err
	}
	if _, err := domain.EncodeField(FieldBloating, in.Bloating); err != nil {
		return domain.FeatureVector{}, err
	}

	if err := domain.CheckRange(FieldSleepHours, in.SleepHours, domain.SleepHoursMin, domain.SleepHoursMax); err != nil {
		return domain.FeatureVector{}, err
	}
	if err := domain.CheckRange(FieldWaterLiters, in.WaterLiters, domain.WaterLitersMin, domain.WaterLitersMax); err != nil {
		return domain.FeatureVector{}, err
	}

	merged := in.ManualTriggers.Union(in.DetectedTriggers)

	vector[domain.FeatureFoodTrigger] = float64(food)
	vector[domain.FeatureStress] = float64(stress)
	vector[domain.FeatureSleepHours] = in.SleepHours
	vector[domain.FeatureWaterLiters] = in.WaterLiters
	if in.Exercised {
		vector[domain.FeatureExercise] = 1
	}
	vector[domain.FeaturePreviousSymptoms] = float64(previous)
	vector[domain.FeatureTriggerCount] = float64(merged.Len())

	return vector, nil
}
