package service

import (
	"strings"

	"github.com/flare-risk-server/internal/domain"
)

// TriggerDetector flags free-text food entries that contain a trigger keyword.
type TriggerDetector struct {
	keywords []string
}

// NewTriggerDetector creates a detector for keywords. Keywords are trimmed and
// lower-cased; blank keywords are dropped since they would match every entry.
// A nil slice selects domain.DefaultTriggerKeywords.
func NewTriggerDetector(keywords []string) *TriggerDetector {
	if keywords == nil {
		keywords = domain.DefaultTriggerKeywords
	}
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = domain.CanonicalTrigger(kw)
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	return &TriggerDetector{keywords: normalized}
}

// Keywords returns the normalized keyword list.
func (d *TriggerDetector) Keywords() []string {
	out := make([]string, len(d.keywords))
	copy(out, d.keywords)
	return out
}

// Detect splits freeText on commas and returns every trimmed, lower-cased
// entry that contains one of the keywords. Each entry appears once, in input
// order. Empty input yields an empty set.
func (d *TriggerDetector) Detect(freeText string) domain.TriggerSet {
	var detected domain.TriggerSet
	if strings.TrimSpace(freeText) == "" {
		return detected
	}

	for _, item := range strings.Split(freeText, ",") {
		food := strings.ToLower(strings.TrimSpace(item))
		if food == "" {
			continue
		}
		if d.matches(food) {
			detected.Add(food)
		}
	}
	return detected
}

func (d *TriggerDetector) matches(food string) bool {
	for _, kw := range d.keywords {
		if strings.Contains(food, kw) {
			return true
		}
	}
	return false
}

// DetectTriggers runs a one-off detection against keywords.
func DetectTriggers(freeText string, keywords []string) domain.TriggerSet {
	return NewTriggerDetector(keywords).Detect(freeText)
}
