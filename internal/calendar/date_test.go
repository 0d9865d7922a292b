package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayOffsetSigned(t *testing.T) {
	start := MustParse("2024-01-01")

	require.Equal(t, 8, DayOffset(MustParse("2024-01-09"), start))
	require.Equal(t, -2, DayOffset(MustParse("2023-12-30"), start))
	require.Equal(t, 0, DayOffset(start, start))
	require.Equal(t, 366, DayOffset(MustParse("2025-01-01"), start))
}

func TestDayOffsetAcrossCenturies(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1700-01-01", "2024-01-01", -118338},
		{"2024-01-01", "1700-01-01", 118338},
		{"0001-01-01", "9999-12-31", -3652058},
		{"2352-07-20", "2024-01-01", 120000},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.want, DayOffset(MustParse(tc.a), MustParse(tc.b)), "%s - %s", tc.a, tc.b)
	}

	from := MustParse("1700-01-01")
	days := Range(from, MustParse("2024-01-01"))
	require.Len(t, days, 118339)
	require.Equal(t, MustParse("2024-01-01"), days[len(days)-1])
	require.True(t, from.Before(MustParse("2300-01-01")))
}

func TestDayOffsetIgnoresTimeOfDayAndZone(t *testing.T) {
	east := time.FixedZone("UTC+14", 14*3600)
	west := time.FixedZone("UTC-12", -12*3600)

	a := FromTime(time.Date(2024, time.April, 1, 0, 30, 0, 0, east))
	b := FromTime(time.Date(2024, time.March, 30, 23, 30, 0, 0, west))
	require.Equal(t, 2, DayOffset(a, b))
}

func TestAddDaysCrossesMonthAndYear(t *testing.T) {
	require.Equal(t, MustParse("2024-03-01"), MustParse("2024-02-28").AddDays(2))
	require.Equal(t, MustParse("2023-12-30"), MustParse("2024-01-01").AddDays(-2))
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "2024-13-01", "yesterday", "2024/01/01"} {
		_, err := Parse(raw)
		require.ErrorIs(t, err, ErrInvalidDate, raw)
	}
}

func TestMonthBounds(t *testing.T) {
	d := MustParse("2024-02-17")
	require.Equal(t, MustParse("2024-02-01"), d.MonthStart())
	require.Equal(t, MustParse("2024-02-29"), d.MonthEnd())
	require.Len(t, Range(d.MonthStart(), d.MonthEnd()), 29)
	require.Nil(t, Range(d.MonthEnd(), d.MonthStart()))
}

func TestJSONRoundTrip(t *testing.T) {
	var payload struct {
		Date Date `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-01-09"}`), &payload))
	require.Equal(t, MustParse("2024-01-09"), payload.Date)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{"date":"2024-01-09"}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"date":"not-a-date"}`), &payload))
}

func TestScanAcceptsTextAndTime(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2024-05-06T00:00:00Z"))
	require.Equal(t, MustParse("2024-05-06"), d)

	require.NoError(t, d.Scan(time.Date(2024, time.May, 7, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, MustParse("2024-05-07"), d)

	require.Error(t, d.Scan(42))
}
