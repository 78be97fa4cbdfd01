package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggerDetector_Detect(t *testing.T) {
	detector := NewTriggerDetector(nil)

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "keywords in entries",
			input:    "Pickle, rice, Coffee",
			expected: []string{"pickle", "coffee"},
		},
		{
			name:     "substring match",
			input:    "mango pickles, black coffee with sugar, dal",
			expected: []string{"mango pickles", "black coffee with sugar"},
		},
		{
			name:     "no match",
			input:    "rice, dal, curd",
			expected: []string{},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []string{},
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: []string{},
		},
		{
			name:     "blank entries skipped",
			input:    ", ,Stir Fry,,",
			expected: []string{"stir fry"},
		},
		{
			name:     "duplicates reported once",
			input:    "coffee, Coffee , COFFEE",
			expected: []string{"coffee"},
		},
		{
			name:     "masala and noodles",
			input:    "Masala Dosa, Hakka Noodles, soy sauce",
			expected: []string{"masala dosa", "hakka noodles", "soy sauce"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detector.Detect(tt.input)
			assert.Equal(t, tt.expected, result.Items())
		})
	}
}

func TestTriggerDetector_CustomKeywords(t *testing.T) {
	detector := NewTriggerDetector([]string{" Onion ", "", "GARLIC"})

	assert.Equal(t, []string{"onion", "garlic"}, detector.Keywords())
	assert.Equal(t, []string{"red onion"}, detector.Detect("Red Onion, pickle").Items())
}

func TestTriggerDetector_EmptyKeywordList(t *testing.T) {
	detector := NewTriggerDetector([]string{})

	assert.Empty(t, detector.Keywords())
	assert.Equal(t, 0, detector.Detect("pickle, coffee").Len())
}

func TestDetectTriggers(t *testing.T) {
	result := DetectTriggers("Pickle, rice, Coffee", nil)
	assert.Equal(t, []string{"pickle", "coffee"}, result.Items())
}
