// Package domain contains the core entities of the flare-up risk pipeline:
// the severity scale, trigger sets, the fixed-order feature vector and the
// symptom log record produced for every prediction.
package domain

import (
	"errors"
)

// SeverityLevel is one of the five ordered ratings used for every symptom and
// lifestyle axis on the tracking form.
type SeverityLevel string

const (
	SeverityNone     SeverityLevel = "None"
	SeverityMild     SeverityLevel = "Mild"
	SeverityModerate SeverityLevel = "Moderate"
	SeverityHigh     SeverityLevel = "High"
	SeveritySevere   SeverityLevel = "Severe/Extreme"
)

// ErrNotFound is returned by lookups that find nothing.
var ErrNotFound = errors.New("not found")

// severityScores is total and injective over the five defined levels.
var severityScores = map[SeverityLevel]int{
	SeverityNone:     0,
	SeverityMild:     2,
	SeverityModerate: 5,
	SeverityHigh:     7,
	SeveritySevere:   10,
}

var severityDescriptions = map[SeverityLevel]string{
	SeverityNone:     "No noticeable symptoms or triggers.",
	SeverityMild:     "Slight discomfort, manageable without intervention.",
	SeverityModerate: "More persistent discomfort, may affect daily activities.",
	SeverityHigh:     "Significant symptoms affecting quality of life.",
	SeveritySevere:   "Severe symptoms requiring strong management or medical advice.",
}

// SeverityLevels returns the five levels in ascending order.
func SeverityLevels() []SeverityLevel {
	return []SeverityLevel{
		SeverityNone,
		SeverityMild,
		SeverityModerate,
		SeverityHigh,
		SeveritySevere,
	}
}

// IsValid reports whether s is one of the five defined names. Matching is
// exact: the input widget only ever offers these spellings.
func (s SeverityLevel) IsValid() bool {
	_, ok := severityScores[s]
	return ok
}

// String returns the display name of the level.
func (s SeverityLevel) String() string {
	return string(s)
}

// Score returns the numeric encoding of the level or an UnknownSeverity error.
func (s SeverityLevel) Score() (int, error) {
	score, ok := severityScores[s]
	if !ok {
		return 0, &SeverityError{Value: string(s)}
	}
	return score, nil
}

// Description returns the guidance text shown next to the level, or an empty
// string for unknown levels.
func (s SeverityLevel) Description() string {
	return severityDescriptions[s]
}

// ParseSeverity converts a name into a SeverityLevel.
func ParseSeverity(name string) (SeverityLevel, error) {
	level := SeverityLevel(name)
	if !level.IsValid() {
		return "", &SeverityError{Value: name}
	}
	return level, nil
}

// EncodeSeverity maps a severity name straight to its score.
func EncodeSeverity(name string) (int, error) {
	return SeverityLevel(name).Score()
}

// SeverityInfo is the catalog entry served to clients building the form.
type SeverityInfo struct {
	Name        SeverityLevel `json:"name"`
	Score       int           `json:"score"`
	Description string        `json:"description"`
}

// SeverityCatalog lists every level with its score and description.
func SeverityCatalog() []SeverityInfo {
	levels := SeverityLevels()
	catalog := make([]SeverityInfo, 0, len(levels))
	for _, level := range levels {
		catalog = append(catalog, SeverityInfo{
			Name:        level,
			Score:       severityScores[level],
			Description: severityDescriptions[level],
		})
	}
	return catalog
}

// EncodeField scores a level and tags any failure with the form field name.
func EncodeField(field string, level SeverityLevel) (int, error) {
	score, ok := severityScores[level]
	if !ok {
		return 0, &SeverityError{Field: field, Value: string(level)}
	}
	return score, nil
}
