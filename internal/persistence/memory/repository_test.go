package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/persistence/persistencetest"
)

func TestRepositoryContract(t *testing.T) {
	persistencetest.RunRepositoryContract(t, func(t *testing.T) domain.Repository {
		return NewRepository()
	})
}

func TestSettingsAreCopiedOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	settings := domain.DefaultSettings()
	require.NoError(t, repo.SaveSettings(ctx, "p1", settings))
	settings.PMCycle[0].Title = "mutated by caller"

	stored, err := repo.GetSettings(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Exfoliation", stored.PMCycle[0].Title)

	stored.PMCycle[0].Title = "mutated after read"
	again, err := repo.GetSettings(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Exfoliation", again.PMCycle[0].Title)
}

func TestConcurrentWritesLastOneWins(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	date := calendar.MustParse("2024-01-01")

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(ordinal int) {
			defer wg.Done()
			_ = repo.UpsertLog(ctx, "p1", domain.NewDailyLog(date, ordinal))
		}(i)
	}
	wg.Wait()

	stored, err := repo.GetLog(ctx, "p1", date)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.GreaterOrEqual(t, stored.CycleOrdinal, 1)
	require.LessOrEqual(t, stored.CycleOrdinal, 20)
}
