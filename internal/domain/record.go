package domain

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the ISO calendar-day format used for log records.
const DateLayout = "2006-01-02"

// RollingLogLimit is the most records a session's rolling log may hold.
const RollingLogLimit = 30

// Bounds of the encoded severity scores stored on a record.
const (
	SeverityScoreMin = 0
	SeverityScoreMax = 10
)

// SymptomLogRecord is the immutable row written once per prediction.
type SymptomLogRecord struct {
	Date            string `json:"date"`
	FlareLikely     bool   `json:"flare_likely"`
	AbdominalPain   int    `json:"abdominal_pain"`
	Bloating        int    `json:"bloating"`
	RomeCriteriaMet bool   `json:"rome_criteria_met,omitempty"`
}

// CalendarDay formats t as the record date in t's own location.
func CalendarDay(t time.Time) string {
	return t.Format(DateLayout)
}

// Day parses the record date.
func (r SymptomLogRecord) Day() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

// Validate checks the date and that both severity scores lie in
// [SeverityScoreMin, SeverityScoreMax].
func (r SymptomLogRecord) Validate() error {
	if _, err := r.Day(); err != nil {
		return fmt.Errorf("invalid record date %q: %w", r.Date, err)
	}
	if err := CheckRange("abdominal_pain", float64(r.AbdominalPain), SeverityScoreMin, SeverityScoreMax); err != nil {
		return err
	}
	return CheckRange("bloating", float64(r.Bloating), SeverityScoreMin, SeverityScoreMax)
}

// Row renders the record in the column order of the external log:
// date, verdict, abdominal pain, bloating, Rome criteria.
func (r SymptomLogRecord) Row() []string {
	return []string{
		r.Date,
		yesNo(r.FlareLikely),
		strconv.Itoa(r.AbdominalPain),
		strconv.Itoa(r.Bloating),
		yesNo(r.RomeCriteriaMet),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Advice is the guidance shown alongside a verdict.
type Advice struct {
	Headline string `json:"headline"`
	Tip      string `json:"tip"`
}

// AdviceFor returns the guidance for a verdict.
func AdviceFor(flareLikely bool) Advice {
	if flareLikely {
		return Advice{
			Headline: "High chance of flare-up today. Consider reducing stress, avoiding spicy foods, and hydrating well.",
			Tip:      "Try a bland diet today, stay hydrated, and avoid known triggers. A short walk or breathing exercise may help.",
		}
	}
	return Advice{
		Headline: "Low chance of flare-up today. Keep maintaining your routine!",
		Tip:      "Keep a consistent routine. Try logging what worked well today so you can repeat it.",
	}
}
