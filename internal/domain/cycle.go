package domain

import (
	"fmt"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
)

// RestNightID identifies the synthetic night used when every configured night is disabled.
const RestNightID = "rest"

// RestNight is the fallback night. It is a recovery night.
func RestNight() NightConfig {
	return NightConfig{
		ID:          RestNightID,
		Title:       "Rest",
		Description: "No night is enabled. Cleanse and moisturise only.",
		ColorTag:    ColorGreen,
		Enabled:     true,
		Steps: []RoutineStep{
			{ID: "rest_1", Label: "Cleanse"},
			{ID: "rest_2", Label: "Moisturise"},
		},
	}
}

// IsRecoveryNight reports whether n is a recovery night. Green nights and the rest night are.
func IsRecoveryNight(n NightConfig) bool {
	return n.ID == RestNightID || n.ColorTag == ColorGreen
}

// CycleSchedule is the enabled subset of the protocol anchored at a start date.
// It is derived on every query and never stored.
type CycleSchedule struct {
	StartDate       calendar.Date
	EffectiveNights []NightConfig
	EffectiveLength int
	Fallback        bool
}

// NewSchedule filters nights down to the enabled ones, in their original order.
// With nothing enabled the schedule holds the rest night alone, so EffectiveLength is at least 1.
func NewSchedule(start calendar.Date, nights []NightConfig) CycleSchedule {
	enabled := make([]NightConfig, 0, len(nights))
	for _, n := range nights {
		if n.Enabled {
			enabled = append(enabled, n)
		}
	}
	fallback := false
	if len(enabled) == 0 {
		enabled = append(enabled, RestNight())
		fallback = true
	}
	return CycleSchedule{
		StartDate:       start,
		EffectiveNights: enabled,
		EffectiveLength: len(enabled),
		Fallback:        fallback,
	}
}

// Resolution is the night active on a given date.
type Resolution struct {
	Date            calendar.Date
	Night           NightConfig
	Index           int
	Ordinal         int
	EffectiveLength int
}

// At resolves date against the schedule. Dates before StartDate wrap backwards through the cycle.
func (s CycleSchedule) At(date calendar.Date) Resolution {
	length := s.EffectiveLength
	offset := calendar.DayOffset(date, s.StartDate)
	index := ((offset % length) + length) % length
	return Resolution{
		Date:            date,
		Night:           s.EffectiveNights[index],
		Index:           index,
		Ordinal:         index + 1,
		EffectiveLength: length,
	}
}

// StartForOrdinal returns the start date that makes today resolve to ordinal.
func (s CycleSchedule) StartForOrdinal(today calendar.Date, ordinal int) (calendar.Date, error) {
	if ordinal < 1 || ordinal > s.EffectiveLength {
		return calendar.Date{}, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidOrdinal, ordinal, s.EffectiveLength)
	}
	return today.AddDays(-(ordinal - 1)), nil
}

// Resolve returns the night active on query for a cycle starting at start.
func Resolve(start calendar.Date, nights []NightConfig, query calendar.Date) Resolution {
	return NewSchedule(start, nights).At(query)
}
