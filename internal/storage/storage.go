// Package storage opens the repository selected by STORAGE_DRIVER.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/config"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/persistence/memory"
	"github.com/Iviolo/SkinCycling-Coach/internal/persistence/postgres"
	"github.com/Iviolo/SkinCycling-Coach/internal/persistence/sqlite"
)

// Store bundles the opened repository with the handles that must be released on shutdown.
// Pool is set only for the postgres driver, which is the one that feeds the outbox.
type Store struct {
	Repository domain.Repository
	Pool       *pgxpool.Pool
	close      func()
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return &Store{
			Repository: postgres.NewRepository(pool, logger.Named("postgres")),
			Pool:       pool,
			close:      pool.Close,
		}, nil

	case config.StorageSQLite:
		repo, err := sqlite.Open(cfg.SQLitePath, logger.Named("sqlite"))
		if err != nil {
			return nil, err
		}
		return &Store{
			Repository: repo,
			close: func() {
				if err := repo.Close(); err != nil {
					logger.Warn("close sqlite", zap.Error(err))
				}
			},
		}, nil

	case config.StorageMemory:
		return &Store{Repository: memory.NewRepository(), close: func() {}}, nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
}

// Close releases the backend.
func (s *Store) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// ServiceOptions builds the domain options implied by configuration: the clock follows
// TIMEZONE and PROTOCOL_SEED_PATH replaces the built-in default protocol.
func ServiceOptions(cfg config.Config) ([]domain.ServiceOption, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	opts := []domain.ServiceOption{
		domain.WithClock(func() calendar.Date { return calendar.Today(loc) }),
	}
	if cfg.ProtocolSeedPath != "" {
		settings, err := domain.LoadSettingsFile(cfg.ProtocolSeedPath)
		if err != nil {
			return nil, fmt.Errorf("load protocol seed: %w", err)
		}
		opts = append(opts, domain.WithDefaultSettings(settings))
	}
	return opts, nil
}
