package consumer

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSnapshotStore writes the adherence event log and snapshots to Postgres.
type PostgresSnapshotStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSnapshotStore constructs a store backed by pool.
func NewPostgresSnapshotStore(pool *pgxpool.Pool) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{pool: pool}
}

// RecordEvent inserts evt into adherence_event_log, ignoring replays of the same event ID.
func (s *PostgresSnapshotStore) RecordEvent(ctx context.Context, evt AdherenceEvent) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO adherence_event_log (event_id, profile_id, event_type, log_date, period, cycle_ordinal, occurred_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (event_id) DO NOTHING`,
		evt.EventID,
		evt.ProfileID,
		evt.EventType,
		evt.Date.Time(),
		string(evt.Period),
		evt.CycleOrdinal,
		evt.OccurredAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SaveSnapshot upserts the profile's snapshot row.
func (s *PostgresSnapshotStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO adherence_snapshots (profile_id, streak, last_event_type, last_log_date, last_event_at, updated_at)
         VALUES ($1,$2,$3,$4,$5,NOW())
         ON CONFLICT (profile_id) DO UPDATE SET
             streak = EXCLUDED.streak,
             last_event_type = EXCLUDED.last_event_type,
             last_log_date = EXCLUDED.last_log_date,
             last_event_at = EXCLUDED.last_event_at,
             updated_at = NOW()`,
		snap.ProfileID,
		snap.Streak,
		snap.LastEventType,
		snap.LastLogDate.Time(),
		snap.LastEventAt,
	)
	return err
}
