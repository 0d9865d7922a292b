package domain

import (
	"fmt"
	"strings"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
)

// Period selects one of the two independent daily routines.
type Period string

const (
	PeriodAM Period = "am"
	PeriodPM Period = "pm"
)

// ParsePeriod accepts "am"/"pm" in any case.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case PeriodAM, PeriodPM:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
}

// SkinCondition is the self-reported state of the skin for a day. The empty value means unset.
type SkinCondition string

const (
	SkinUnset     SkinCondition = ""
	SkinNormal    SkinCondition = "normal"
	SkinDry       SkinCondition = "dry"
	SkinSensitive SkinCondition = "sensitive"
	SkinIrritated SkinCondition = "irritated"
	SkinBreakout  SkinCondition = "breakout"
)

// Valid reports whether c is unset or one of the known conditions.
func (c SkinCondition) Valid() bool {
	switch c {
	case SkinUnset, SkinNormal, SkinDry, SkinSensitive, SkinIrritated, SkinBreakout:
		return true
	}
	return false
}

// UnmarshalText normalises case and rejects unknown conditions.
func (c *SkinCondition) UnmarshalText(text []byte) error {
	cond := SkinCondition(strings.ToLower(strings.TrimSpace(string(text))))
	if !cond.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSkinCondition, string(text))
	}
	*c = cond
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c SkinCondition) MarshalText() ([]byte, error) {
	return []byte(c), nil
}

// DailyLog is the persisted adherence record for one calendar day.
// CycleOrdinal is the night ordinal captured when the PM routine was last completed;
// it is never recomputed from the live configuration.
type DailyLog struct {
	DateKey       calendar.Date `json:"date"`
	AMCompleted   bool          `json:"am_completed"`
	PMCompleted   bool          `json:"pm_completed"`
	Notes         string        `json:"notes"`
	CycleOrdinal  int           `json:"cycle_ordinal"`
	SkinCondition SkinCondition `json:"skin_condition,omitempty"`
}

// NewDailyLog synthesises the record used for a day nobody has touched yet.
func NewDailyLog(date calendar.Date, ordinal int) DailyLog {
	return DailyLog{DateKey: date, CycleOrdinal: ordinal}
}

// IsCompleted reports the completion flag for p.
func (l DailyLog) IsCompleted(p Period) bool {
	if p == PeriodAM {
		return l.AMCompleted
	}
	return l.PMCompleted
}

// Complete marks p done. Completing PM snapshots ordinal into CycleOrdinal.
func (l DailyLog) Complete(p Period, ordinal int) DailyLog {
	switch p {
	case PeriodAM:
		l.AMCompleted = true
	case PeriodPM:
		l.PMCompleted = true
		l.CycleOrdinal = ordinal
	}
	return l
}

// Reopen clears the completion flag for p and leaves everything else as it was.
func (l DailyLog) Reopen(p Period) DailyLog {
	switch p {
	case PeriodAM:
		l.AMCompleted = false
	case PeriodPM:
		l.PMCompleted = false
	}
	return l
}

// WithSkinCondition returns a copy carrying cond.
func (l DailyLog) WithSkinCondition(cond SkinCondition) DailyLog {
	l.SkinCondition = cond
	return l
}

// WithNotes returns a copy carrying notes.
func (l DailyLog) WithNotes(notes string) DailyLog {
	l.Notes = notes
	return l
}

// Logs indexes daily records by date.
type Logs map[calendar.Date]DailyLog

// pmCompleted reports whether the PM routine is done on d. Missing days count as not done.
func (ls Logs) pmCompleted(d calendar.Date) bool {
	l, ok := ls[d]
	return ok && l.PMCompleted
}
