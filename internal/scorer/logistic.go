// Package scorer provides RiskScorer implementations.
package scorer

import (
	"context"
	"fmt"
	"math"

	"github.com/flare-risk-server/internal/domain"
)

// Fit parameters for the reference model.
const (
	DefaultIterations   = 2000
	DefaultLearningRate = 0.1
	DefaultL2           = 1.0
	Threshold           = 0.5
)

// TrainingSet is a labelled sample used to fit a LogisticScorer.
type TrainingSet struct {
	Features []domain.FeatureVector
	Labels   []bool
}

// ReferenceTrainingSet returns the five-row sample the bundled model is fit on.
func ReferenceTrainingSet() TrainingSet {
	return TrainingSet{
		Features: []domain.FeatureVector{
			{5, 7, 5, 2.0, 1, 6, 2},
			{2, 3, 8, 3.0, 0, 2, 0},
			{8, 8, 4, 1.5, 0, 7, 3},
			{1, 1, 7, 2.5, 1, 1, 0},
			{9, 9, 3, 1.0, 0, 8, 4},
		},
		Labels: []bool{true, false, true, false, true},
	}
}

// LogisticScorer is an L2-regularised logistic regression over standardised
// features. It is immutable once fit and safe for concurrent use.
type LogisticScorer struct {
	mean    domain.FeatureVector
	scale   domain.FeatureVector
	weights domain.FeatureVector
	bias    float64
}

// FitLogistic fits a model to set with batch gradient descent. The result is
// deterministic for a given set and iteration count.
func FitLogistic(set TrainingSet, iterations int) (*LogisticScorer, error) {
	n := len(set.Features)
	if n == 0 {
		return nil, fmt.Errorf("training set is empty")
	}
	if len(set.Labels) != n {
		return nil, fmt.Errorf("training set has %d rows but %d labels", n, len(set.Labels))
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	s := &LogisticScorer{}
	for j := 0; j < domain.FeatureCount; j++ {
		var sum float64
		for _, row := range set.Features {
			sum += row[j]
		}
		mean := sum / float64(n)

		var sq float64
		for _, row := range set.Features {
			d := row[j] - mean
			sq += d * d
		}
		scale := math.Sqrt(sq / float64(n))
		if scale == 0 {
			scale = 1
		}
		s.mean[j] = mean
		s.scale[j] = scale
	}

	z := make([]domain.FeatureVector, n)
	for i, row := range set.Features {
		z[i] = s.standardize(row)
	}

	for it := 0; it < iterations; it++ {
		var gradW domain.FeatureVector
		var gradB float64
		for i, row := range z {
			p := sigmoid(s.linear(row))
			diff := p
			if set.Labels[i] {
				diff -= 1
			}
			for j := range row {
				gradW[j] += diff * row[j]
			}
			gradB += diff
		}
		for j := range s.weights {
			s.weights[j] -= DefaultLearningRate * (gradW[j] + DefaultL2*s.weights[j]) / float64(n)
		}
		s.bias -= DefaultLearningRate * gradB / float64(n)
	}

	return s, nil
}

// NewReferenceScorer fits the bundled model.
func NewReferenceScorer(iterations int) (*LogisticScorer, error) {
	return FitLogistic(ReferenceTrainingSet(), iterations)
}

// Probability returns the modelled flare-up probability for vector.
func (s *LogisticScorer) Probability(vector domain.FeatureVector) float64 {
	return sigmoid(s.linear(s.standardize(vector)))
}

// Score reports a flare-up when the probability reaches Threshold.
func (s *LogisticScorer) Score(ctx context.Context, vector domain.FeatureVector) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for i, v := range vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false, fmt.Errorf("feature %s is not finite", domain.FeatureNames[i])
		}
	}
	return s.Probability(vector) >= Threshold, nil
}

// Weights returns the fitted coefficients in standardised feature space.
func (s *LogisticScorer) Weights() (domain.FeatureVector, float64) {
	return s.weights, s.bias
}

func (s *LogisticScorer) standardize(v domain.FeatureVector) domain.FeatureVector {
	var out domain.FeatureVector
	for j := range v {
		out[j] = (v[j] - s.mean[j]) / s.scale[j]
	}
	return out
}

func (s *LogisticScorer) linear(z domain.FeatureVector) float64 {
	sum := s.bias
	for j := range z {
		sum += s.weights[j] * z[j]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
