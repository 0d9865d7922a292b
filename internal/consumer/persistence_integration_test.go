//go:build integration

package consumer

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

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/persistence/postgres"
)

func TestProjectionWritesSnapshotToPostgres(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	profileID := uuid.NewString()
	today := calendar.MustParse("2024-01-05")

	repo := postgres.NewRepository(pool, nil)
	for _, d := range []string{"2024-01-04", "2024-01-05"} {
		date := calendar.MustParse(d)
		require.NoError(t, repo.UpsertLog(ctx, profileID, domain.NewDailyLog(date, 1).Complete(domain.PeriodPM, 1)))
	}

	store := NewPostgresSnapshotStore(pool)
	handler := NewProjectionHandler(repo, store, func() calendar.Date { return today })

	msg := completedMessage(t, uuid.NewString(), profileID, today)
	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg))

	var streak int
	var lastDate time.Time
	require.NoError(t, pool.QueryRow(ctx, `SELECT streak, last_log_date FROM adherence_snapshots WHERE profile_id = $1`, profileID).Scan(&streak, &lastDate))
	require.Equal(t, 2, streak)
	require.Equal(t, today, calendar.FromTime(lastDate))

	var logged int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM adherence_event_log WHERE profile_id = $1`, profileID).Scan(&logged))
	require.Equal(t, 1, logged)
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("skincycle"),
		postgrescontainer.WithUsername("skincycle"),
		postgrescontainer.WithPassword("skincycle"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	return pool, func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(resolvePath(t, "../../db/postgres/migrations"), "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, file := range files {
		content, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)
		_, execErr := pool.Exec(ctx, string(content))
		require.NoErrorf(t, execErr, "execute migration %s", file)
	}
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

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}
