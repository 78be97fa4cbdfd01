package domain

import (
	"encoding/json"
	"strings"
)

// DefaultTriggerKeywords are the substrings that flag a free-text food entry
// as a likely trigger.
var DefaultTriggerKeywords = []string{"pickle", "coffee", "fry", "masala", "sauce", "noodles"}

// CommonTriggerChoices are the labels offered by the manual multi-select.
var CommonTriggerChoices = []string{
	"Red chili powder",
	"Green chili",
	"Garam masala",
	"Pickles",
	"Fried snacks",
	"Caffeinated drinks",
}

// CanonicalTrigger is the comparison key for trigger strings: trimmed and
// lower-cased. Plurals and synonyms are not folded.
func CanonicalTrigger(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TriggerSet is an insertion-ordered set of trigger strings. Two entries are
// the same trigger when their CanonicalTrigger keys are equal; the first
// spelling seen is the one kept.
type TriggerSet struct {
	items []string
	keys  map[string]struct{}
}

// NewTriggerSet builds a set from items, skipping blanks and duplicates.
func NewTriggerSet(items ...string) TriggerSet {
	var set TriggerSet
	for _, item := range items {
		set.Add(item)
	}
	return set
}

// Add inserts item unless it is blank or already present. It reports whether
// the set grew.
func (s *TriggerSet) Add(item string) bool {
	item = strings.TrimSpace(item)
	key := CanonicalTrigger(item)
	if key == "" {
		return false
	}
	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// Contains reports whether an equivalent trigger is in the set.
func (s TriggerSet) Contains(item string) bool {
	_, ok := s.keys[CanonicalTrigger(item)]
	return ok
}

// Len returns the number of distinct triggers.
func (s TriggerSet) Len() int {
	return len(s.items)
}

// Items returns a copy of the triggers in insertion order.
func (s TriggerSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Union returns a new set holding every item of s followed by the items of
// other that s does not already contain. Neither operand is modified.
func (s TriggerSet) Union(other TriggerSet) TriggerSet {
	merged := NewTriggerSet(s.items...)
	for _, item := range other.items {
		merged.Add(item)
	}
	return merged
}

// MarshalJSON encodes the set as a JSON array.
func (s TriggerSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON decodes a JSON array, dropping duplicates.
func (s *TriggerSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewTriggerSet(items...)
	return nil
}
