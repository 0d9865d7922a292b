//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap/zaptest"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/pkg/events"
)

func TestRepositoryLogRoundTripAndProfileScope(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := NewRepository(pool, zaptest.NewLogger(t))

	profileID := uuid.NewString()
	date := calendar.MustParse("2024-01-03")

	missing, err := repo.GetLog(ctx, profileID, date)
	require.NoError(t, err)
	require.Nil(t, missing)

	log := domain.NewDailyLog(date, 0).
		Complete(domain.PeriodPM, 3).
		WithSkinCondition(domain.SkinDry).
		WithNotes("tight after retinoid")
	require.NoError(t, repo.UpsertLog(ctx, profileID, log))

	stored, err := repo.GetLog(ctx, profileID, date)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, log, *stored)

	other, err := repo.GetLog(ctx, uuid.NewString(), date)
	require.NoError(t, err)
	require.Nil(t, other)
}

func TestRepositoryUpsertOverwritesAndEmitsFlipEvents(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := NewRepository(pool, nil)

	profileID := uuid.NewString()
	date := calendar.MustParse("2024-01-01")

	completed := domain.NewDailyLog(date, 0).Complete(domain.PeriodPM, 1)
	require.NoError(t, repo.UpsertLog(ctx, profileID, completed))
	require.NoError(t, repo.UpsertLog(ctx, profileID, completed.WithNotes("same flags, no event")))
	require.NoError(t, repo.UpsertLog(ctx, profileID, completed.Reopen(domain.PeriodPM)))

	rows, err := pool.Query(ctx, `SELECT event_type FROM outbox WHERE profile_id = $1 ORDER BY event_id`, profileID)
	require.NoError(t, err)
	defer rows.Close()

	var types []string
	for rows.Next() {
		var eventType string
		require.NoError(t, rows.Scan(&eventType))
		types = append(types, eventType)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{events.TypeAdherenceCompleted, events.TypeAdherenceReopened}, types)

	stored, err := repo.GetLog(ctx, profileID, date)
	require.NoError(t, err)
	require.False(t, stored.PMCompleted)
	require.Equal(t, 1, stored.CycleOrdinal)
	require.Equal(t, "same flags, no event", stored.Notes)
}

func TestRepositoryListsAndPagesLogs(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := NewRepository(pool, nil)

	profileID := uuid.NewString()
	start := calendar.MustParse("2024-02-27")
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.UpsertLog(ctx, profileID, domain.NewDailyLog(start.AddDays(i), i+1)))
	}

	logs, err := repo.ListLogs(ctx, profileID, calendar.MustParse("2024-02-28"), calendar.MustParse("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, logs, 3)
	require.Contains(t, logs, calendar.MustParse("2024-02-29"))

	page, next, err := repo.ListLogPage(ctx, profileID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, calendar.MustParse("2024-03-02"), page[0].DateKey)
	require.NotNil(t, next)

	page, _, err = repo.ListLogPage(ctx, profileID, next, 10)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.Equal(t, calendar.MustParse("2024-02-29"), page[0].DateKey)
}

func TestRepositoryProfileValues(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := NewRepository(pool, zaptest.NewLogger(t))

	profileID := uuid.NewString()

	settings, err := repo.GetSettings(ctx, profileID)
	require.NoError(t, err)
	require.Nil(t, settings)

	start, err := repo.GetStartDate(ctx, profileID)
	require.NoError(t, err)
	require.Nil(t, start)

	defaults := domain.DefaultSettings()
	require.NoError(t, repo.SaveSettings(ctx, profileID, defaults))
	require.NoError(t, repo.SetStartDate(ctx, profileID, calendar.MustParse("2024-01-01")))
	require.NoError(t, repo.SetUserName(ctx, profileID, "Giulia"))

	settings, err = repo.GetSettings(ctx, profileID)
	require.NoError(t, err)
	require.Equal(t, defaults, *settings)

	start, err = repo.GetStartDate(ctx, profileID)
	require.NoError(t, err)
	require.Equal(t, calendar.MustParse("2024-01-01"), *start)

	name, err := repo.GetUserName(ctx, profileID)
	require.NoError(t, err)
	require.Equal(t, "Giulia", name)

	_, err = pool.Exec(ctx, `UPDATE profiles SET settings = '{"pm_cycle":[{"id":"n","color_tag":"purple"}]}' WHERE profile_id = $1`, profileID)
	require.NoError(t, err)

	settings, err = repo.GetSettings(ctx, profileID)
	require.NoError(t, err)
	require.Nil(t, settings, "unreadable settings are reported as absent")
}

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("skincycle"),
		postgrescontainer.WithUsername("skincycle"),
		postgrescontainer.WithPassword("skincycle"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	files, err := filepath.Glob(filepath.Join(resolvePath(t, "../../../db/postgres/migrations"), "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)
	for _, file := range files {
		contents, err := os.ReadFile(file)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(contents))
		require.NoErrorf(t, err, "execute migration %s", file)
	}
	return pool
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
