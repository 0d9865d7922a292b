// Package domain defines the cycle scheduling and adherence tracking logic.
package domain

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
)

// DefaultUserName is shown until the profile stores its own name.
const DefaultUserName = "friend"

// LogRepository persists daily logs. GetLog returns nil, nil for a day with no record.
// UpsertLog replaces the whole record for log.DateKey; the last write wins.
type LogRepository interface {
	GetLog(ctx context.Context, profileID string, date calendar.Date) (*DailyLog, error)
	UpsertLog(ctx context.Context, profileID string, log DailyLog) error
	ListLogs(ctx context.Context, profileID string, from, to calendar.Date) (Logs, error)
	ListLogPage(ctx context.Context, profileID string, cursor *Cursor, limit int) ([]DailyLog, *Cursor, error)
}

// ProfileRepository persists the per-profile configuration blobs.
// Getters return nil (or "") when the value is absent or unreadable.
type ProfileRepository interface {
	GetSettings(ctx context.Context, profileID string) (*Settings, error)
	SaveSettings(ctx context.Context, profileID string, settings Settings) error
	GetStartDate(ctx context.Context, profileID string) (*calendar.Date, error)
	SetStartDate(ctx context.Context, profileID string, start calendar.Date) error
	GetUserName(ctx context.Context, profileID string) (string, error)
	SetUserName(ctx context.Context, profileID string, name string) error
}

// Repository is the full storage contract used by Service.
type Repository interface {
	LogRepository
	ProfileRepository
}

// Cursor models the history pagination token: logs strictly before Before are returned next.
type Cursor struct {
	Before calendar.Date
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides how the service determines today.
func WithClock(today func() calendar.Date) ServiceOption {
	return func(s *Service) { s.today = today }
}

// WithDefaultSettings overrides the protocol used for profiles without stored settings.
func WithDefaultSettings(settings Settings) ServiceOption {
	return func(s *Service) { s.defaults = settings.Clone() }
}

// Service orchestrates the pure cycle/streak logic over a Repository.
type Service struct {
	repo     Repository
	today    func() calendar.Date
	defaults Settings
}

// NewService constructs a Service using the process-local date as today.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		today:    func() calendar.Date { return calendar.Today(nil) },
		defaults: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the service's notion of the current date.
func (s *Service) Today() calendar.Date {
	return s.today()
}

// Settings returns the stored protocol or the default one.
func (s *Service) Settings(ctx context.Context, profileID string) (Settings, error) {
	stored, err := s.repo.GetSettings(ctx, profileID)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if stored == nil {
		return s.defaults.Clone(), nil
	}
	return *stored, nil
}

// SaveSettings validates and stores a protocol definition.
func (s *Service) SaveSettings(ctx context.Context, profileID string, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.repo.SaveSettings(ctx, profileID, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// StartDate returns the cycle epoch, storing today on first use.
func (s *Service) StartDate(ctx context.Context, profileID string) (calendar.Date, error) {
	stored, err := s.repo.GetStartDate(ctx, profileID)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("load start date: %w", err)
	}
	if stored != nil {
		return *stored, nil
	}
	today := s.today()
	if err := s.repo.SetStartDate(ctx, profileID, today); err != nil {
		return calendar.Date{}, fmt.Errorf("store start date: %w", err)
	}
	return today, nil
}

// SetStartDate moves the cycle epoch. Every past and future date is re-interpreted;
// snapshotted ordinals in existing logs are left alone.
func (s *Service) SetStartDate(ctx context.Context, profileID string, start calendar.Date) error {
	if err := s.repo.SetStartDate(ctx, profileID, start); err != nil {
		return fmt.Errorf("store start date: %w", err)
	}
	return nil
}

// Schedule builds the live schedule for the profile.
func (s *Service) Schedule(ctx context.Context, profileID string) (CycleSchedule, Settings, error) {
	settings, err := s.Settings(ctx, profileID)
	if err != nil {
		return CycleSchedule{}, Settings{}, err
	}
	start, err := s.StartDate(ctx, profileID)
	if err != nil {
		return CycleSchedule{}, Settings{}, err
	}
	return NewSchedule(start, settings.PMCycle), settings, nil
}

// Resolve returns the night active on date under the live configuration.
func (s *Service) Resolve(ctx context.Context, profileID string, date calendar.Date) (Resolution, error) {
	schedule, _, err := s.Schedule(ctx, profileID)
	if err != nil {
		return Resolution{}, err
	}
	return schedule.At(date), nil
}

// GetLog returns the stored record for date or a default one carrying the live ordinal.
func (s *Service) GetLog(ctx context.Context, profileID string, date calendar.Date) (DailyLog, error) {
	stored, err := s.repo.GetLog(ctx, profileID, date)
	if err != nil {
		return DailyLog{}, fmt.Errorf("load log %s: %w", date, err)
	}
	if stored != nil {
		return *stored, nil
	}
	res, err := s.Resolve(ctx, profileID, date)
	if err != nil {
		return DailyLog{}, err
	}
	return NewDailyLog(date, res.Ordinal), nil
}

// UpsertLog stores the full record, replacing whatever was there.
func (s *Service) UpsertLog(ctx context.Context, profileID string, log DailyLog) error {
	if log.DateKey.IsZero() {
		return fmt.Errorf("%w: missing date", calendar.ErrInvalidDate)
	}
	if !log.SkinCondition.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSkinCondition, log.SkinCondition)
	}
	if err := s.repo.UpsertLog(ctx, profileID, log); err != nil {
		return fmt.Errorf("store log %s: %w", log.DateKey, err)
	}
	return nil
}

// CompleteInput describes a request to mark a period done.
type CompleteInput struct {
	Date           calendar.Date
	Period         Period
	CheckedStepIDs []string
	Rescue         bool
}

// CompletePeriod marks a period done once every displayed step is checked.
// The PM routine's displayed steps are the rescue routine when Rescue is set.
func (s *Service) CompletePeriod(ctx context.Context, profileID string, in CompleteInput) (DailyLog, error) {
	schedule, settings, err := s.Schedule(ctx, profileID)
	if err != nil {
		return DailyLog{}, err
	}
	res := schedule.At(in.Date)

	steps, err := s.stepsFor(settings, res.Night, in.Period, in.Rescue)
	if err != nil {
		return DailyLog{}, err
	}
	checks := NewStepChecklist(in.CheckedStepIDs...)
	if !checks.CanComplete(steps) {
		return DailyLog{}, fmt.Errorf("%w: %d of %d", ErrIncompleteSteps, checks.CheckedOf(steps), len(steps))
	}

	current, err := s.GetLog(ctx, profileID, in.Date)
	if err != nil {
		return DailyLog{}, err
	}
	next := current.Complete(in.Period, res.Ordinal)
	if err := s.UpsertLog(ctx, profileID, next); err != nil {
		return DailyLog{}, err
	}
	return next, nil
}

// ReopenPeriod clears the completion flag. The snapshotted ordinal is kept.
func (s *Service) ReopenPeriod(ctx context.Context, profileID string, date calendar.Date, period Period) (DailyLog, error) {
	if _, err := ParsePeriod(string(period)); err != nil {
		return DailyLog{}, err
	}
	current, err := s.GetLog(ctx, profileID, date)
	if err != nil {
		return DailyLog{}, err
	}
	next := current.Reopen(period)
	if err := s.UpsertLog(ctx, profileID, next); err != nil {
		return DailyLog{}, err
	}
	return next, nil
}

// ConditionInput carries optional updates to the skin condition and notes of a day.
type ConditionInput struct {
	SkinCondition *SkinCondition
	Notes         *string
}

// UpdateCondition records the skin condition and/or notes for date.
func (s *Service) UpdateCondition(ctx context.Context, profileID string, date calendar.Date, in ConditionInput) (DailyLog, error) {
	current, err := s.GetLog(ctx, profileID, date)
	if err != nil {
		return DailyLog{}, err
	}
	next := current
	if in.SkinCondition != nil {
		if !in.SkinCondition.Valid() {
			return DailyLog{}, fmt.Errorf("%w: %q", ErrInvalidSkinCondition, *in.SkinCondition)
		}
		next = next.WithSkinCondition(*in.SkinCondition)
	}
	if in.Notes != nil {
		next = next.WithNotes(*in.Notes)
	}
	if err := s.UpsertLog(ctx, profileID, next); err != nil {
		return DailyLog{}, err
	}
	return next, nil
}

// SwitchCycle moves the start date so that today resolves to ordinal.
func (s *Service) SwitchCycle(ctx context.Context, profileID string, ordinal int) (Resolution, error) {
	schedule, _, err := s.Schedule(ctx, profileID)
	if err != nil {
		return Resolution{}, err
	}
	today := s.today()
	start, err := schedule.StartForOrdinal(today, ordinal)
	if err != nil {
		return Resolution{}, err
	}
	if err := s.SetStartDate(ctx, profileID, start); err != nil {
		return Resolution{}, err
	}
	schedule.StartDate = start
	return schedule.At(today), nil
}

// recentLogs loads enough history for a bounded streak walk ending at today.
func (s *Service) recentLogs(ctx context.Context, profileID string, today calendar.Date) (Logs, error) {
	logs, err := s.repo.ListLogs(ctx, profileID, today.AddDays(-MaxStreakWalk), today)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return logs, nil
}

// Streak returns the current PM streak ending at or before today.
func (s *Service) Streak(ctx context.Context, profileID string, today calendar.Date) (int, error) {
	logs, err := s.recentLogs(ctx, profileID, today)
	if err != nil {
		return 0, err
	}
	return ComputeStreak(logs, today), nil
}

// Stats bundles the streak, the month summary and the last seven days.
type Stats struct {
	Today  calendar.Date
	Streak int
	Month  MonthStats
	Week   []WindowDay
}

// WeekLength is the size of the rolling adherence window.
const WeekLength = 7

// Stats computes adherence statistics as of today.
func (s *Service) Stats(ctx context.Context, profileID string, today calendar.Date) (Stats, error) {
	schedule, _, err := s.Schedule(ctx, profileID)
	if err != nil {
		return Stats{}, err
	}
	logs, err := s.recentLogs(ctx, profileID, today)
	if err != nil {
		return Stats{}, err
	}
	month := ComputeMonthStats(logs, today)
	return Stats{
		Today:  today,
		Streak: month.Streak,
		Month:  month,
		Week:   Window(schedule, logs, today, WeekLength),
	}, nil
}

// CalendarDay is one cell of the month grid. LiveOrdinal comes from the current
// configuration; Log.CycleOrdinal is what was true when the day was completed.
// The two may disagree after the night list or start date is edited.
type CalendarDay struct {
	Date        calendar.Date
	Night       NightConfig
	LiveOrdinal int
	Log         *DailyLog
}

// Month returns one entry per day of the month containing day.
func (s *Service) Month(ctx context.Context, profileID string, day calendar.Date) ([]CalendarDay, error) {
	schedule, _, err := s.Schedule(ctx, profileID)
	if err != nil {
		return nil, err
	}
	from, to := day.MonthStart(), day.MonthEnd()
	logs, err := s.repo.ListLogs(ctx, profileID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	days := calendar.Range(from, to)
	out := make([]CalendarDay, 0, len(days))
	for _, d := range days {
		res := schedule.At(d)
		entry := CalendarDay{Date: d, Night: res.Night, LiveOrdinal: res.Ordinal}
		if l, ok := logs[d]; ok {
			l := l
			entry.Log = &l
		}
		out = append(out, entry)
	}
	return out, nil
}

// History returns a page of stored logs, newest first.
func (s *Service) History(ctx context.Context, profileID string, cursor *Cursor, limit int) ([]DailyLog, *Cursor, error) {
	return s.repo.ListLogPage(ctx, profileID, cursor, limit)
}

// LogsBetween returns the stored logs with from <= date <= to, newest first.
func (s *Service) LogsBetween(ctx context.Context, profileID string, from, to calendar.Date) ([]DailyLog, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is after %s", calendar.ErrInvalidDate, from, to)
	}
	logs, err := s.repo.ListLogs(ctx, profileID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	out := make([]DailyLog, 0, len(logs))
	for _, d := range calendar.Range(from, to) {
		if l, ok := logs[d]; ok {
			out = append(out, l)
		}
	}
	slices.Reverse(out)
	return out, nil
}

// UserName returns the display name, defaulting when unset.
func (s *Service) UserName(ctx context.Context, profileID string) (string, error) {
	name, err := s.repo.GetUserName(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("load user name: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		return DefaultUserName, nil
	}
	return name, nil
}

// SetUserName stores the display name.
func (s *Service) SetUserName(ctx context.Context, profileID, name string) error {
	if err := s.repo.SetUserName(ctx, profileID, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("store user name: %w", err)
	}
	return nil
}

// TodayView is everything the rendering layer needs for the current day.
type TodayView struct {
	Date           calendar.Date
	UserName       string
	Resolution     Resolution
	Log            DailyLog
	AMSteps        []RoutineStep
	PMSteps        []RoutineStep
	AMState        CompletionState
	PMState        CompletionState
	Streak         int
	RescueEligible bool
	RescueActive   bool
	EnabledNights  []NightConfig
	FallbackCycle  bool
}

// TodayInput carries the session state the caller holds for today.
type TodayInput struct {
	Rescue    *RescueSession
	AMChecked []string
	PMChecked []string
}

// BuildToday assembles the today view. Rescue substitutes the PM steps for display only.
func (s *Service) BuildToday(ctx context.Context, profileID string, in TodayInput) (TodayView, error) {
	today := s.today()
	schedule, settings, err := s.Schedule(ctx, profileID)
	if err != nil {
		return TodayView{}, err
	}
	res := schedule.At(today)

	log, err := s.GetLog(ctx, profileID, today)
	if err != nil {
		return TodayView{}, err
	}
	logs, err := s.recentLogs(ctx, profileID, today)
	if err != nil {
		return TodayView{}, err
	}
	name, err := s.UserName(ctx, profileID)
	if err != nil {
		return TodayView{}, err
	}

	rescue := in.Rescue
	if rescue == nil {
		rescue = &RescueSession{}
	}
	amSteps := cloneSteps(settings.AMRoutine)
	pmSteps := rescue.PMSteps(res.Night)

	amChecks := NewStepChecklist(in.AMChecked...)
	if log.AMCompleted {
		amChecks = ChecklistFor(log, PeriodAM, amSteps)
	}
	pmChecks := NewStepChecklist(in.PMChecked...)
	if log.PMCompleted {
		pmChecks = ChecklistFor(log, PeriodPM, pmSteps)
	}

	return TodayView{
		Date:           today,
		UserName:       name,
		Resolution:     res,
		Log:            log,
		AMSteps:        amSteps,
		PMSteps:        pmSteps,
		AMState:        State(log, PeriodAM, amChecks, amSteps),
		PMState:        State(log, PeriodPM, pmChecks, pmSteps),
		Streak:         ComputeStreak(logs, today),
		RescueEligible: IsRescueEligible(log, res.Night),
		RescueActive:   rescue.Active(),
		EnabledNights:  schedule.EffectiveNights,
		FallbackCycle:  schedule.Fallback,
	}, nil
}

func (s *Service) stepsFor(settings Settings, night NightConfig, period Period, rescue bool) ([]RoutineStep, error) {
	switch period {
	case PeriodAM:
		return settings.AMRoutine, nil
	case PeriodPM:
		session := RescueSession{active: rescue}
		return session.PMSteps(night), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
}
