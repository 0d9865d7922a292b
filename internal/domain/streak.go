package domain

import (
	"math"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
)

// MaxStreakWalk bounds how many days ComputeStreak inspects.
const MaxStreakWalk = 365

// ComputeStreak counts consecutive days with the PM routine completed, walking back from today.
// An unfinished today does not break the streak; counting then starts from yesterday.
func ComputeStreak(logs Logs, today calendar.Date) int {
	day := today
	if !logs.pmCompleted(day) {
		day = day.AddDays(-1)
	}
	streak := 0
	for i := 0; i < MaxStreakWalk; i++ {
		if !logs.pmCompleted(day) {
			break
		}
		streak++
		day = day.AddDays(-1)
	}
	return streak
}

// MonthStats summarises adherence for the elapsed part of today's month.
type MonthStats struct {
	DaysElapsed   int `json:"days_elapsed"`
	AMCount       int `json:"am_count"`
	PMCount       int `json:"pm_count"`
	AMPercent     int `json:"am_percent"`
	PMPercent     int `json:"pm_percent"`
	TotalSessions int `json:"total_sessions"`
	Streak        int `json:"streak"`
}

// ComputeMonthStats counts completions from the first of the month through today inclusive.
func ComputeMonthStats(logs Logs, today calendar.Date) MonthStats {
	days := calendar.Range(today.MonthStart(), today)
	stats := MonthStats{DaysElapsed: len(days), Streak: ComputeStreak(logs, today)}
	for _, d := range days {
		l, ok := logs[d]
		if !ok {
			continue
		}
		if l.AMCompleted {
			stats.AMCount++
		}
		if l.PMCompleted {
			stats.PMCount++
		}
	}
	denominator := stats.DaysElapsed
	if denominator == 0 {
		denominator = 1
	}
	stats.AMPercent = percent(stats.AMCount, denominator)
	stats.PMPercent = percent(stats.PMCount, denominator)
	stats.TotalSessions = stats.AMCount + stats.PMCount
	return stats
}

func percent(n, of int) int {
	return int(math.Floor(float64(n)*100/float64(of) + 0.5))
}

// WindowDay is one entry of a rolling adherence window.
type WindowDay struct {
	Date        calendar.Date `json:"date"`
	AMCompleted bool          `json:"am_completed"`
	PMCompleted bool          `json:"pm_completed"`
	NightID     string        `json:"night_id"`
	Ordinal     int           `json:"ordinal"`
}

// Window returns the last days days ending at today, oldest first, resolved against the live schedule.
func Window(schedule CycleSchedule, logs Logs, today calendar.Date, days int) []WindowDay {
	if days <= 0 {
		return nil
	}
	out := make([]WindowDay, 0, days)
	for _, d := range calendar.Range(today.AddDays(-(days - 1)), today) {
		res := schedule.At(d)
		l := logs[d]
		out = append(out, WindowDay{
			Date:        d,
			AMCompleted: l.AMCompleted,
			PMCompleted: l.PMCompleted,
			NightID:     res.Night.ID,
			Ordinal:     res.Ordinal,
		})
	}
	return out
}
