package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
)

func testNights(enabled ...bool) []NightConfig {
	tags := []ColorTag{ColorOrange, ColorPink, ColorGreen, ColorGreen}
	nights := make([]NightConfig, len(enabled))
	for i, on := range enabled {
		id := string(rune('a' + i))
		nights[i] = NightConfig{
			ID:       id,
			Title:    "night " + id,
			ColorTag: tags[i%len(tags)],
			Enabled:  on,
			Steps:    []RoutineStep{{ID: id + "_1", Label: "Cleanse"}},
		}
	}
	return nights
}

func TestResolveWalksCycleFromStartDate(t *testing.T) {
	start := calendar.MustParse("2024-01-01")
	nights := testNights(true, true, true, true)

	cases := []struct {
		date    string
		ordinal int
		id      string
	}{
		{"2024-01-01", 1, "a"},
		{"2024-01-02", 2, "b"},
		{"2024-01-03", 3, "c"},
		{"2024-01-04", 4, "d"},
		{"2024-01-05", 1, "a"},
		{"2024-01-09", 1, "a"},
		{"2023-12-31", 4, "d"},
		{"2023-12-30", 3, "c"},
		{"2023-12-29", 2, "b"},
		{"2023-01-01", 4, "d"},
	}
	for _, tc := range cases {
		res := Resolve(start, nights, calendar.MustParse(tc.date))
		require.Equalf(t, tc.ordinal, res.Ordinal, "ordinal for %s", tc.date)
		require.Equalf(t, tc.id, res.Night.ID, "night for %s", tc.date)
		require.Equal(t, tc.ordinal-1, res.Index)
		require.Equal(t, 4, res.EffectiveLength)
	}
}

func TestResolveIsPeriodic(t *testing.T) {
	start := calendar.MustParse("2024-02-27")
	schedule := NewSchedule(start, testNights(true, false, true, true))

	for offset := -20; offset < 20; offset++ {
		d := start.AddDays(offset)
		here := schedule.At(d)
		later := schedule.At(d.AddDays(schedule.EffectiveLength))
		require.Equal(t, here.Night.ID, later.Night.ID)
		require.GreaterOrEqual(t, here.Index, 0)
		require.Less(t, here.Index, schedule.EffectiveLength)
	}
}

func TestResolveIsPeriodicOverCenturies(t *testing.T) {
	start := calendar.MustParse("2024-01-01")
	schedule := NewSchedule(start, testNights(true, true, true))

	for _, k := range []int{40000, -40000, 100000} {
		d := start.AddDays(k * schedule.EffectiveLength)
		require.Equalf(t, 1, schedule.At(d).Ordinal, "ordinal on %s", d)
	}

	early := NewSchedule(calendar.MustParse("1700-01-01"), testNights(true, true, true, true))
	// 118338 days separate the two starts, and 118338 mod 4 is 2.
	require.Equal(t, 3, early.At(start).Ordinal)
	require.Equal(t, 4, early.At(start.AddDays(1)).Ordinal)
}

func TestDisabledNightsAreSkipped(t *testing.T) {
	start := calendar.MustParse("2024-01-01")
	res := Resolve(start, testNights(true, false, true, true), calendar.MustParse("2024-01-03"))
	require.Equal(t, 3, res.EffectiveLength)
	require.Equal(t, 3, res.Ordinal)
	require.Equal(t, "d", res.Night.ID)
}

func TestFallbackToRestNight(t *testing.T) {
	schedule := NewSchedule(calendar.MustParse("2024-01-01"), testNights(false, false))
	require.True(t, schedule.Fallback)
	require.Equal(t, 1, schedule.EffectiveLength)

	res := schedule.At(calendar.MustParse("2030-06-15"))
	require.Equal(t, RestNightID, res.Night.ID)
	require.Equal(t, 1, res.Ordinal)
	require.True(t, IsRecoveryNight(res.Night))

	empty := NewSchedule(calendar.MustParse("2024-01-01"), nil)
	require.True(t, empty.Fallback)
}

func TestStartForOrdinal(t *testing.T) {
	today := calendar.MustParse("2024-03-01")
	schedule := NewSchedule(calendar.MustParse("2020-01-01"), testNights(true, true, true))

	for ordinal := 1; ordinal <= 3; ordinal++ {
		start, err := schedule.StartForOrdinal(today, ordinal)
		require.NoError(t, err)
		schedule.StartDate = start
		require.Equal(t, ordinal, schedule.At(today).Ordinal)
	}

	_, err := schedule.StartForOrdinal(today, 0)
	require.ErrorIs(t, err, ErrInvalidOrdinal)
	_, err = schedule.StartForOrdinal(today, 4)
	require.ErrorIs(t, err, ErrInvalidOrdinal)
}
