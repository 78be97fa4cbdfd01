package domain

// FeatureCount is the arity every RiskScorer is fit against.
const FeatureCount = 7

// Positions inside a FeatureVector.
const (
	FeatureFoodTrigger = iota
	FeatureStress
	FeatureSleepHours
	FeatureWaterLiters
	FeatureExercise
	FeaturePreviousSymptoms
	FeatureTriggerCount
)

// FeatureNames labels each FeatureVector position.
var FeatureNames = [FeatureCount]string{
	"food_trigger_score",
	"stress_score",
	"sleep_hours",
	"water_liters",
	"exercise_flag",
	"previous_symptom_score",
	"trigger_count",
}

// Slider bounds and form defaults.
const (
	SleepHoursMin      = 3.0
	SleepHoursMax      = 10.0
	WaterLitersMin     = 0.5
	WaterLitersMax     = 5.0
	DefaultSleepHours  = 6.0
	DefaultWaterLiters = 2.5
)

// FeatureVector is the fixed-order numeric encoding consumed by a RiskScorer.
// The array type makes any other arity a compile error.
type FeatureVector [FeatureCount]float64

// Slice returns the vector as a slice, in order.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// Named returns the vector keyed by feature name.
func (v FeatureVector) Named() map[string]float64 {
	out := make(map[string]float64, FeatureCount)
	for i, name := range FeatureNames {
		out[name] = v[i]
	}
	return out
}

// FeatureInputs are the already-collected form values the feature builder
// turns into a vector. DetectedTriggers comes from the trigger detector.
type FeatureInputs struct {
	FoodTrigger      SeverityLevel `json:"food_trigger"`
	Stress           SeverityLevel `json:"stress"`
	PreviousSymptoms SeverityLevel `json:"previous_symptoms"`
	AbdominalPain    SeverityLevel `json:"abdominal_pain"`
	Bloating         SeverityLevel `json:"bloating"`
	SleepHours       float64       `json:"sleep_hours"`
	WaterLiters      float64       `json:"water_liters"`
	Exercised        bool          `json:"exercised"`
	ManualTriggers   TriggerSet    `json:"manual_triggers"`
	DetectedTriggers TriggerSet    `json:"detected_triggers"`
}

// PredictionRequest is one submission of the tracking form.
type PredictionRequest struct {
	FoodTrigger      SeverityLevel `json:"food_trigger"`
	Stress           SeverityLevel `json:"stress"`
	PreviousSymptoms SeverityLevel `json:"previous_symptoms"`
	AbdominalPain    SeverityLevel `json:"abdominal_pain"`
	Bloating         SeverityLevel `json:"bloating"`
	SleepHours       float64       `json:"sleep_hours"`
	WaterLiters      float64       `json:"water_liters"`
	Exercised        bool          `json:"exercised"`
	ManualTriggers   []string      `json:"manual_triggers,omitempty"`
	FoodsEaten       string        `json:"foods_eaten,omitempty"`
	RomeCriteriaMet  bool          `json:"rome_criteria_met,omitempty"`
}

// DefaultPredictionRequest returns the form as it is first shown.
func DefaultPredictionRequest() PredictionRequest {
	return PredictionRequest{
		FoodTrigger:      SeverityNone,
		Stress:           SeverityNone,
		PreviousSymptoms: SeverityNone,
		AbdominalPain:    SeverityNone,
		Bloating:         SeverityNone,
		SleepHours:       DefaultSleepHours,
		WaterLiters:      DefaultWaterLiters,
	}
}

// FeatureInputs converts the request, attaching the detected trigger set.
func (r PredictionRequest) FeatureInputs(detected TriggerSet) FeatureInputs {
	return FeatureInputs{
		FoodTrigger:      r.FoodTrigger,
		Stress:           r.Stress,
		PreviousSymptoms: r.PreviousSymptoms,
		AbdominalPain:    r.AbdominalPain,
		Bloating:         r.Bloating,
		SleepHours:       r.SleepHours,
		WaterLiters:      r.WaterLiters,
		Exercised:        r.Exercised,
		ManualTriggers:   NewTriggerSet(r.ManualTriggers...),
		DetectedTriggers: detected,
	}
}
