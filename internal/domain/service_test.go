package domain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/persistence/memory"
)

const profile = "profile-1"

type fixture struct {
	svc   *domain.Service
	repo  *memory.Repository
	today calendar.Date
}

func newFixture(t *testing.T, today string) *fixture {
	t.Helper()
	f := &fixture{repo: memory.NewRepository(), today: calendar.MustParse(today)}
	f.svc = domain.NewService(f.repo, domain.WithClock(func() calendar.Date { return f.today }))
	return f
}

func ids(steps []domain.RoutineStep) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.ID)
	}
	return out
}

func (f *fixture) completePM(t *testing.T, date calendar.Date) domain.DailyLog {
	t.Helper()
	ctx := context.Background()
	res, err := f.svc.Resolve(ctx, profile, date)
	require.NoError(t, err)
	log, err := f.svc.CompletePeriod(ctx, profile, domain.CompleteInput{
		Date:           date,
		Period:         domain.PeriodPM,
		CheckedStepIDs: ids(res.Night.Steps),
	})
	require.NoError(t, err)
	return log
}

func TestStartDateDefaultsToFirstUse(t *testing.T) {
	f := newFixture(t, "2024-01-01")
	ctx := context.Background()

	start, err := f.svc.StartDate(ctx, profile)
	require.NoError(t, err)
	require.Equal(t, f.today, start)

	f.today = calendar.MustParse("2024-01-03")
	start, err = f.svc.StartDate(ctx, profile)
	require.NoError(t, err)
	require.Equal(t, calendar.MustParse("2024-01-01"), start)

	res, err := f.svc.Resolve(ctx, profile, f.today)
	require.NoError(t, err)
	require.Equal(t, 3, res.Ordinal)
	require.Equal(t, "night_3", res.Night.ID)
}

func TestGetLogSynthesisesLiveOrdinal(t *testing.T) {
	f := newFixture(t, "2024-01-01")
	ctx := context.Background()

	log, err := f.svc.GetLog(ctx, profile, calendar.MustParse("2024-01-02"))
	require.NoError(t, err)
	require.Equal(t, domain.NewDailyLog(calendar.MustParse("2024-01-02"), 2), log)

	stored, err := f.repo.GetLog(ctx, profile, calendar.MustParse("2024-01-02"))
	require.NoError(t, err)
	require.Nil(t, stored, "reads never create records")
}

func TestCompletePeriodGuardsAndSnapshots(t *testing.T) {
	f := newFixture(t, "2024-01-01")
	ctx := context.Background()
	am := domain.DefaultSettings().AMRoutine

	_, err := f.svc.CompletePeriod(ctx, profile, domain.CompleteInput{
		Date:           f.today,
		Period:         domain.PeriodAM,
		CheckedStepIDs: ids(am)[1:],
	})
	require.ErrorIs(t, err, domain.ErrIncompleteSteps)

	_, err = f.svc.CompletePeriod(ctx, profile, domain.CompleteInput{Date: f.today, Period: "noon"})
	require.ErrorIs(t, err, domain.ErrInvalidPeriod)

	log, err := f.svc.CompletePeriod(ctx, profile, domain.CompleteInput{
		Date:           f.today,
		Period:         domain.PeriodAM,
		CheckedStepIDs: ids(am),
	})
	require.NoError(t, err)
	require.True(t, log.AMCompleted)
	require.False(t, log.PMCompleted)

	log = f.completePM(t, f.today)
	require.True(t, log.AMCompleted)
	require.Equal(t, 1, log.CycleOrdinal)
}

func TestSnapshotSurvivesConfigurationChanges(t *testing.T) {
	f := newFixture(t, "2024-01-03")
	ctx := context.Background()
	require.NoError(t, f.svc.SetStartDate(ctx, profile, calendar.MustParse("2024-01-01")))

	log := f.completePM(t, f.today)
	require.Equal(t, 3, log.CycleOrdinal)

	settings := domain.DefaultSettings()
	settings.PMCycle[1].Enabled = false
	require.NoError(t, f.svc.SaveSettings(ctx, profile, settings))

	res, err := f.svc.Resolve(ctx, profile, f.today)
	require.NoError(t, err)
	require.Equal(t, "night_4", res.Night.ID)
	require.Equal(t, 3, res.Ordinal)

	reopened, err := f.svc.ReopenPeriod(ctx, profile, f.today, domain.PeriodPM)
	require.NoError(t, err)
	require.Equal(t, 3, reopened.CycleOrdinal)

	again, err := f.svc.ReopenPeriod(ctx, profile, f.today, domain.PeriodPM)
	require.NoError(t, err)
	require.Equal(t, reopened, again)

	month, err := f.svc.Month(ctx, profile, f.today)
	require.NoError(t, err)
	require.Len(t, month, 31)
	require.Equal(t, 3, month[2].LiveOrdinal)
	require.NotNil(t, month[2].Log)
	require.Equal(t, 3, month[2].Log.CycleOrdinal)
	require.Nil(t, month[0].Log)
}

func TestRescueCompletionLeavesProtocolAlone(t *testing.T) {
	f := newFixture(t, "2024-01-01")
	ctx := context.Background()

	_, err := f.svc.UpdateCondition(ctx, profile, f.today, domain.ConditionInput{SkinCondition: ptr(domain.SkinIrritated)})
	require.NoError(t, err)

	session := &domain.RescueSession{}
	session.Activate()
	view, err := f.svc.BuildToday(ctx, profile, domain.TodayInput{Rescue: session, PMChecked: []string{"rescue_1"}})
	require.NoError(t, err)
	require.True(t, view.RescueEligible)
	require.True(t, view.RescueActive)
	require.Equal(t, ids(domain.RescueSteps()), ids(view.PMSteps))
	require.Equal(t, domain.StateInProgress, view.PMState)

	log, err := f.svc.CompletePeriod(ctx, profile, domain.CompleteInput{
		Date:           f.today,
		Period:         domain.PeriodPM,
		CheckedStepIDs: ids(domain.RescueSteps()),
		Rescue:         true,
	})
	require.NoError(t, err)
	require.True(t, log.PMCompleted)
	require.Equal(t, domain.SkinIrritated, log.SkinCondition)

	settings, err := f.svc.Settings(ctx, profile)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultSettings(), settings)

	plain, err := f.svc.BuildToday(ctx, profile, domain.TodayInput{})
	require.NoError(t, err)
	require.False(t, plain.RescueActive)
	require.Equal(t, ids(domain.DefaultSettings().PMCycle[0].Steps), ids(plain.PMSteps))
	require.Equal(t, domain.StateCompleted, plain.PMState)
}

func TestUpdateConditionKeepsOtherFields(t *testing.T) {
	f := newFixture(t, "2024-01-01")
	ctx := context.Background()
	f.completePM(t, f.today)

	log, err := f.svc.UpdateCondition(ctx, profile, f.today, domain.ConditionInput{Notes: ptr("a bit red")})
	require.NoError(t, err)
	require.True(t, log.PMCompleted)
	require.Equal(t, "a bit red", log.Notes)
	require.Equal(t, domain.SkinUnset, log.SkinCondition)

	_, err = f.svc.UpdateCondition(ctx, profile, f.today, domain.ConditionInput{SkinCondition: ptr(domain.SkinCondition("oily"))})
	require.ErrorIs(t, err, domain.ErrInvalidSkinCondition)
}

func TestSwitchCycle(t *testing.T) {
	f := newFixture(t, "2024-01-10")
	ctx := context.Background()

	res, err := f.svc.SwitchCycle(ctx, profile, 3)
	require.NoError(t, err)
	require.Equal(t, 3, res.Ordinal)

	start, err := f.svc.StartDate(ctx, profile)
	require.NoError(t, err)
	require.Equal(t, calendar.MustParse("2024-01-08"), start)

	_, err = f.svc.SwitchCycle(ctx, profile, 5)
	require.ErrorIs(t, err, domain.ErrInvalidOrdinal)
}

func TestStreakAndStats(t *testing.T) {
	f := newFixture(t, "2024-01-05")
	ctx := context.Background()
	for _, d := range []string{"2024-01-02", "2024-01-03", "2024-01-04"} {
		f.completePM(t, calendar.MustParse(d))
	}

	streak, err := f.svc.Streak(ctx, profile, f.today)
	require.NoError(t, err)
	require.Equal(t, 3, streak)

	f.completePM(t, f.today)
	stats, err := f.svc.Stats(ctx, profile, f.today)
	require.NoError(t, err)
	require.Equal(t, 4, stats.Streak)
	require.Equal(t, 5, stats.Month.DaysElapsed)
	require.Equal(t, 80, stats.Month.PMPercent)
	require.Len(t, stats.Week, domain.WeekLength)

	_, err = f.svc.ReopenPeriod(ctx, profile, calendar.MustParse("2024-01-03"), domain.PeriodPM)
	require.NoError(t, err)
	streak, err = f.svc.Streak(ctx, profile, f.today)
	require.NoError(t, err)
	require.Equal(t, 2, streak)
}

func TestLogsBetweenAndHistory(t *testing.T) {
	f := newFixture(t, "2024-01-05")
	ctx := context.Background()
	for _, d := range []string{"2024-01-01", "2024-01-03", "2024-01-05"} {
		f.completePM(t, calendar.MustParse(d))
	}

	logs, err := f.svc.LogsBetween(ctx, profile, calendar.MustParse("2024-01-02"), calendar.MustParse("2024-01-05"))
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, calendar.MustParse("2024-01-05"), logs[0].DateKey)

	_, err = f.svc.LogsBetween(ctx, profile, calendar.MustParse("2024-01-05"), calendar.MustParse("2024-01-01"))
	require.ErrorIs(t, err, calendar.ErrInvalidDate)

	page, next, err := f.svc.History(ctx, profile, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
}

func TestSettingsValidationAndDefaults(t *testing.T) {
	seed := domain.DefaultSettings()
	seed.PMCycle = seed.PMCycle[:2]
	f := &fixture{repo: memory.NewRepository(), today: calendar.MustParse("2024-01-01")}
	f.svc = domain.NewService(f.repo,
		domain.WithClock(func() calendar.Date { return f.today }),
		domain.WithDefaultSettings(seed),
	)
	ctx := context.Background()

	settings, err := f.svc.Settings(ctx, profile)
	require.NoError(t, err)
	require.Len(t, settings.PMCycle, 2)

	bad := domain.DefaultSettings()
	bad.PMCycle[0].ColorTag = "purple"
	require.ErrorIs(t, f.svc.SaveSettings(ctx, profile, bad), domain.ErrInvalidSettings)

	stored, err := f.repo.GetSettings(ctx, profile)
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestUserName(t *testing.T) {
	f := newFixture(t, "2024-01-01")
	ctx := context.Background()

	name, err := f.svc.UserName(ctx, profile)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultUserName, name)

	require.NoError(t, f.svc.SetUserName(ctx, profile, " Ana "))
	name, err = f.svc.UserName(ctx, profile)
	require.NoError(t, err)
	require.Equal(t, "Ana", name)
}

func ptr[T any](v T) *T { return &v }
