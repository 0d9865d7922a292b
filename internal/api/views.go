package api

import (
	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
)

// CompleteRequest is the payload for POST /v1/logs/{date}/complete.
type CompleteRequest struct {
	Period         string   `json:"period"`
	CheckedStepIDs []string `json:"checked_step_ids"`
}

// ReopenRequest is the payload for POST /v1/logs/{date}/reopen.
type ReopenRequest struct {
	Period string `json:"period"`
}

// ConditionRequest is the payload for PATCH /v1/logs/{date}/condition.
// Omitted fields are left unchanged.
type ConditionRequest struct {
	SkinCondition *domain.SkinCondition `json:"skin_condition,omitempty"`
	Notes         *string               `json:"notes,omitempty"`
}

// SwitchCycleRequest is the payload for POST /v1/cycle/switch.
type SwitchCycleRequest struct {
	Ordinal int `json:"ordinal"`
}

// StartDateBody is used for both reading and writing the cycle start date.
type StartDateBody struct {
	StartDate calendar.Date `json:"start_date"`
}

// ProfileBody carries the display name.
type ProfileBody struct {
	UserName string `json:"user_name"`
}

// ResolutionView describes the night active on a date.
type ResolutionView struct {
	Date            calendar.Date      `json:"date"`
	Night           domain.NightConfig `json:"night"`
	Ordinal         int                `json:"ordinal"`
	EffectiveLength int                `json:"effective_length"`
}

// TodayView is the response body for GET /v1/today.
type TodayView struct {
	Date           calendar.Date        `json:"date"`
	UserName       string               `json:"user_name"`
	Resolution     ResolutionView       `json:"resolution"`
	Log            domain.DailyLog      `json:"log"`
	AMSteps        []domain.RoutineStep `json:"am_steps"`
	PMSteps        []domain.RoutineStep `json:"pm_steps"`
	AMState        string               `json:"am_state"`
	PMState        string               `json:"pm_state"`
	Streak         int                  `json:"streak"`
	RescueEligible bool                 `json:"rescue_eligible"`
	RescueActive   bool                 `json:"rescue_active"`
	EnabledNights  []domain.NightConfig `json:"enabled_nights"`
	FallbackCycle  bool                 `json:"fallback_cycle"`
}

// ListLogsResponse packages history results.
type ListLogsResponse struct {
	Items      []domain.DailyLog `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// StatsResponse is the response body for GET /v1/stats.
type StatsResponse struct {
	Today  calendar.Date      `json:"today"`
	Streak int                `json:"streak"`
	Month  domain.MonthStats  `json:"month"`
	Week   []domain.WindowDay `json:"week"`
}

// CalendarDayView is one cell of the month grid. SnapshotOrdinal is set only
// for completed evenings.
type CalendarDayView struct {
	Date            calendar.Date    `json:"date"`
	NightID         string           `json:"night_id"`
	NightTitle      string           `json:"night_title"`
	ColorTag        domain.ColorTag  `json:"color_tag"`
	LiveOrdinal     int              `json:"live_ordinal"`
	SnapshotOrdinal int              `json:"snapshot_ordinal,omitempty"`
	Log             *domain.DailyLog `json:"log,omitempty"`
}

// CalendarResponse is the response body for GET /v1/calendar.
type CalendarResponse struct {
	Month string            `json:"month"`
	Days  []CalendarDayView `json:"days"`
}

// RescueResponse reports rescue mode for a session.
type RescueResponse struct {
	SessionID string               `json:"session_id"`
	Active    bool                 `json:"active"`
	Eligible  bool                 `json:"eligible"`
	PMSteps   []domain.RoutineStep `json:"pm_steps"`
}

func toResolutionView(res domain.Resolution) ResolutionView {
	return ResolutionView{
		Date:            res.Date,
		Night:           res.Night,
		Ordinal:         res.Ordinal,
		EffectiveLength: res.EffectiveLength,
	}
}

func toTodayView(v domain.TodayView) TodayView {
	return TodayView{
		Date:           v.Date,
		UserName:       v.UserName,
		Resolution:     toResolutionView(v.Resolution),
		Log:            v.Log,
		AMSteps:        v.AMSteps,
		PMSteps:        v.PMSteps,
		AMState:        string(v.AMState),
		PMState:        string(v.PMState),
		Streak:         v.Streak,
		RescueEligible: v.RescueEligible,
		RescueActive:   v.RescueActive,
		EnabledNights:  v.EnabledNights,
		FallbackCycle:  v.FallbackCycle,
	}
}

func toCalendarDayView(d domain.CalendarDay) CalendarDayView {
	view := CalendarDayView{
		Date:        d.Date,
		NightID:     d.Night.ID,
		NightTitle:  d.Night.Title,
		ColorTag:    d.Night.ColorTag,
		LiveOrdinal: d.LiveOrdinal,
		Log:         d.Log,
	}
	if d.Log != nil && d.Log.PMCompleted {
		view.SnapshotOrdinal = d.Log.CycleOrdinal
	}
	return view
}
