// Package persistencetest holds the behaviour every domain.Repository implementation must share.
package persistencetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
)

// RunRepositoryContract exercises repo through the domain.Repository interface.
// newRepo must return an empty repository on every call.
func RunRepositoryContract(t *testing.T, newRepo func(t *testing.T) domain.Repository) {
	t.Run("missing log is nil", func(t *testing.T) {
		repo := newRepo(t)
		log, err := repo.GetLog(context.Background(), "p1", calendar.MustParse("2024-01-01"))
		require.NoError(t, err)
		require.Nil(t, log)
	})

	t.Run("upsert overwrites the whole record", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		date := calendar.MustParse("2024-01-02")

		first := domain.NewDailyLog(date, 0).Complete(domain.PeriodPM, 2).WithSkinCondition(domain.SkinIrritated).WithNotes("red cheeks")
		require.NoError(t, repo.UpsertLog(ctx, "p1", first))

		second := domain.NewDailyLog(date, 0).Complete(domain.PeriodAM, 0)
		require.NoError(t, repo.UpsertLog(ctx, "p1", second))

		stored, err := repo.GetLog(ctx, "p1", date)
		require.NoError(t, err)
		require.NotNil(t, stored)
		require.Equal(t, second, *stored)
	})

	t.Run("profiles are isolated", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		date := calendar.MustParse("2024-01-03")
		require.NoError(t, repo.UpsertLog(ctx, "p1", domain.NewDailyLog(date, 1)))
		require.NoError(t, repo.SetUserName(ctx, "p1", "Ada"))

		log, err := repo.GetLog(ctx, "p2", date)
		require.NoError(t, err)
		require.Nil(t, log)

		name, err := repo.GetUserName(ctx, "p2")
		require.NoError(t, err)
		require.Empty(t, name)
	})

	t.Run("list range is inclusive", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		start := calendar.MustParse("2024-02-27")
		for i := 0; i < 5; i++ {
			require.NoError(t, repo.UpsertLog(ctx, "p1", domain.NewDailyLog(start.AddDays(i), i+1)))
		}

		logs, err := repo.ListLogs(ctx, "p1", calendar.MustParse("2024-02-28"), calendar.MustParse("2024-03-01"))
		require.NoError(t, err)
		require.Len(t, logs, 3)
		require.Equal(t, 3, logs[calendar.MustParse("2024-02-29")].CycleOrdinal)
	})

	t.Run("history pages newest first", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		start := calendar.MustParse("2024-02-27")
		for i := 0; i < 5; i++ {
			require.NoError(t, repo.UpsertLog(ctx, "p1", domain.NewDailyLog(start.AddDays(i), i+1)))
		}

		page, next, err := repo.ListLogPage(ctx, "p1", nil, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.Equal(t, calendar.MustParse("2024-03-02"), page[0].DateKey)
		require.Equal(t, calendar.MustParse("2024-03-01"), page[1].DateKey)
		require.NotNil(t, next)

		page, _, err = repo.ListLogPage(ctx, "p1", next, 10)
		require.NoError(t, err)
		require.Len(t, page, 3)
		require.Equal(t, calendar.MustParse("2024-02-29"), page[0].DateKey)
		require.Equal(t, calendar.MustParse("2024-02-27"), page[2].DateKey)
	})

	t.Run("profile values round trip", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		settings, err := repo.GetSettings(ctx, "p1")
		require.NoError(t, err)
		require.Nil(t, settings)
		start, err := repo.GetStartDate(ctx, "p1")
		require.NoError(t, err)
		require.Nil(t, start)

		defaults := domain.DefaultSettings()
		defaults.PMCycle[3].Enabled = false
		require.NoError(t, repo.SaveSettings(ctx, "p1", defaults))
		require.NoError(t, repo.SetStartDate(ctx, "p1", calendar.MustParse("2024-01-01")))
		require.NoError(t, repo.SetUserName(ctx, "p1", "Ada"))

		settings, err = repo.GetSettings(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, defaults, *settings)

		start, err = repo.GetStartDate(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, calendar.MustParse("2024-01-01"), *start)

		name, err := repo.GetUserName(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, "Ada", name)
	})
}
