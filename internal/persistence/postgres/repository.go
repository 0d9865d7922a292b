package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/observability"
	"github.com/Iviolo/SkinCycling-Coach/internal/persistence"
	"github.com/Iviolo/SkinCycling-Coach/pkg/events"
)

// Repository provides Postgres-backed persistence for profiles, daily logs and outbox events.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// inProfile runs fn in a transaction scoped to profileID for row level security.
func (r *Repository) inProfile(ctx context.Context, profileID string, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.profile_id', $1, true)", profileID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const logColumns = `log_date, am_completed, pm_completed, notes, cycle_ordinal, skin_condition`

func scanLog(row pgx.Row) (domain.DailyLog, error) {
	var (
		log       domain.DailyLog
		date      time.Time
		condition string
	)
	if err := row.Scan(&date, &log.AMCompleted, &log.PMCompleted, &log.Notes, &log.CycleOrdinal, &condition); err != nil {
		return domain.DailyLog{}, err
	}
	log.DateKey = calendar.FromTime(date)
	log.SkinCondition = domain.SkinCondition(condition)
	if !log.SkinCondition.Valid() {
		log.SkinCondition = domain.SkinUnset
	}
	return log, nil
}

// GetLog returns the stored log for date, or nil when there is none.
func (r *Repository) GetLog(ctx context.Context, profileID string, date calendar.Date) (*domain.DailyLog, error) {
	query := `SELECT ` + logColumns + ` FROM daily_logs WHERE profile_id=$1 AND log_date=$2`

	var out *domain.DailyLog
	err := r.inProfile(ctx, profileID, func(tx pgx.Tx) error {
		log, err := scanLog(tx.QueryRow(ctx, query, profileID, date.Time()))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		out = &log
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertLog overwrites every column of the day's record. Period flips relative to the
// previous row are recorded in the outbox within the same transaction.
func (r *Repository) UpsertLog(ctx context.Context, profileID string, log domain.DailyLog) error {
	now := time.Now().UTC()
	err := r.inProfile(ctx, profileID, func(tx pgx.Tx) error {
		var prevAM, prevPM bool
		err := tx.QueryRow(ctx, `SELECT am_completed, pm_completed FROM daily_logs WHERE profile_id=$1 AND log_date=$2`,
			profileID, log.DateKey.Time()).Scan(&prevAM, &prevPM)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		const upsert = `INSERT INTO daily_logs (profile_id, log_date, am_completed, pm_completed, notes, cycle_ordinal, skin_condition, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (profile_id, log_date) DO UPDATE SET
            am_completed = EXCLUDED.am_completed,
            pm_completed = EXCLUDED.pm_completed,
            notes = EXCLUDED.notes,
            cycle_ordinal = EXCLUDED.cycle_ordinal,
            skin_condition = EXCLUDED.skin_condition,
            updated_at = EXCLUDED.updated_at`

		if _, err := tx.Exec(ctx, upsert,
			profileID,
			log.DateKey.Time(),
			log.AMCompleted,
			log.PMCompleted,
			log.Notes,
			log.CycleOrdinal,
			string(log.SkinCondition),
			now,
		); err != nil {
			return err
		}

		if err := r.recordFlip(ctx, tx, profileID, log, domain.PeriodAM, prevAM, log.AMCompleted, now); err != nil {
			return err
		}
		return r.recordFlip(ctx, tx, profileID, log, domain.PeriodPM, prevPM, log.PMCompleted, now)
	})
	if err != nil {
		return err
	}
	observability.RecordLogPersisted(now)
	return nil
}

func (r *Repository) recordFlip(ctx context.Context, tx pgx.Tx, profileID string, log domain.DailyLog, period domain.Period, before, after bool, at time.Time) error {
	if before == after {
		return nil
	}
	eventID := uuid.NewString()
	if after {
		return r.insertOutbox(ctx, tx, profileID, eventID, events.TypeAdherenceCompleted, events.AdherenceCompleted{
			EventID:      eventID,
			ProfileID:    profileID,
			Date:         log.DateKey.String(),
			Period:       string(period),
			CycleOrdinal: log.CycleOrdinal,
			OccurredAt:   at,
		})
	}
	return r.insertOutbox(ctx, tx, profileID, eventID, events.TypeAdherenceReopened, events.AdherenceReopened{
		EventID:    eventID,
		ProfileID:  profileID,
		Date:       log.DateKey.String(),
		Period:     string(period),
		OccurredAt: at,
	})
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, profileID, eventID, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (profile_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		profileID,
		"daily_log",
		profileID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(profileID),
		body,
		eventID,
	)
	return err
}

// ListLogs returns logs with from <= date <= to.
func (r *Repository) ListLogs(ctx context.Context, profileID string, from, to calendar.Date) (domain.Logs, error) {
	query := `SELECT ` + logColumns + ` FROM daily_logs WHERE profile_id=$1 AND log_date BETWEEN $2 AND $3`

	out := make(domain.Logs)
	err := r.inProfile(ctx, profileID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, profileID, from.Time(), to.Time())
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			log, err := scanLog(rows)
			if err != nil {
				return err
			}
			out[log.DateKey] = log
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListLogPage returns logs newest first with cursor pagination.
func (r *Repository) ListLogPage(ctx context.Context, profileID string, cursor *domain.Cursor, limit int) ([]domain.DailyLog, *domain.Cursor, error) {
	args := []interface{}{profileID, limit}
	query := `SELECT ` + logColumns + ` FROM daily_logs WHERE profile_id=$1`

	if cursor != nil {
		query += ` AND log_date < $3`
		args = append(args, cursor.Before.Time())
	}

	query += ` ORDER BY log_date DESC LIMIT $2`

	results := make([]domain.DailyLog, 0, limit)
	err := r.inProfile(ctx, profileID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			log, err := scanLog(rows)
			if err != nil {
				return err
			}
			results = append(results, log)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if limit > 0 && len(results) == limit {
		nextCursor = &domain.Cursor{Before: results[len(results)-1].DateKey}
	}
	return results, nextCursor, nil
}

// GetSettings returns stored settings. A malformed blob is logged and reported as absent.
func (r *Repository) GetSettings(ctx context.Context, profileID string) (*domain.Settings, error) {
	var raw []byte
	err := r.inProfile(ctx, profileID, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT settings FROM profiles WHERE profile_id=$1`, profileID).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	settings, err := persistence.DecodeSettings(raw)
	if err != nil {
		r.logger.Warn("ignoring unreadable settings", zap.String("profile_id", profileID), zap.Error(err))
		return nil, nil
	}
	return settings, nil
}

// SaveSettings stores the settings blob, replacing the previous one.
func (r *Repository) SaveSettings(ctx context.Context, profileID string, settings domain.Settings) error {
	body, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return r.inProfile(ctx, profileID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO profiles (profile_id, settings, updated_at) VALUES ($1,$2,NOW())
            ON CONFLICT (profile_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = NOW()`,
			profileID, body)
		return err
	})
}

// GetStartDate returns the cycle start date, or nil when unset.
func (r *Repository) GetStartDate(ctx context.Context, profileID string) (*calendar.Date, error) {
	var start *time.Time
	err := r.inProfile(ctx, profileID, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT start_date FROM profiles WHERE profile_id=$1`, profileID).Scan(&start)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil || start == nil {
		return nil, err
	}
	d := calendar.FromTime(*start)
	return &d, nil
}

// SetStartDate stores the cycle start date.
func (r *Repository) SetStartDate(ctx context.Context, profileID string, start calendar.Date) error {
	return r.inProfile(ctx, profileID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO profiles (profile_id, start_date, updated_at) VALUES ($1,$2,NOW())
            ON CONFLICT (profile_id) DO UPDATE SET start_date = EXCLUDED.start_date, updated_at = NOW()`,
			profileID, start.Time())
		return err
	})
}

// GetUserName returns the display name, or "" when unset.
func (r *Repository) GetUserName(ctx context.Context, profileID string) (string, error) {
	var name string
	err := r.inProfile(ctx, profileID, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT user_name FROM profiles WHERE profile_id=$1`, profileID).Scan(&name)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	return name, err
}

// SetUserName stores the display name.
func (r *Repository) SetUserName(ctx context.Context, profileID, name string) error {
	return r.inProfile(ctx, profileID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO profiles (profile_id, user_name, updated_at) VALUES ($1,$2,NOW())
            ON CONFLICT (profile_id) DO UPDATE SET user_name = EXCLUDED.user_name, updated_at = NOW()`,
			profileID, name)
		return err
	})
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(profileID string) string
}

func byProfile(profileID string) string { return profileID }

var eventCatalog = map[string]EventMetadata{
	events.TypeAdherenceCompleted: {
		Topic:          "adherence_events",
		SchemaSubject:  "adherence_events-value",
		PartitionKeyFn: byProfile,
	},
	events.TypeAdherenceReopened: {
		Topic:          "adherence_events",
		SchemaSubject:  "adherence_events-value",
		PartitionKeyFn: byProfile,
	},
}
