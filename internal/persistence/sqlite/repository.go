// Package sqlite stores profiles and daily logs in a local SQLite database for single-device use.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/observability"
	"github.com/Iviolo/SkinCycling-Coach/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    profile_id TEXT PRIMARY KEY,
    user_name TEXT NOT NULL DEFAULT '',
    start_date TEXT,
    settings TEXT,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_logs (
    profile_id TEXT NOT NULL,
    log_date TEXT NOT NULL,
    am_completed INTEGER NOT NULL DEFAULT 0,
    pm_completed INTEGER NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    cycle_ordinal INTEGER NOT NULL DEFAULT 0,
    skin_condition TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL,
    PRIMARY KEY (profile_id, log_date)
);
`

// Repository implements domain.Repository on SQLite.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" yields a private in-memory database.
func Open(path string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Repository{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (domain.DailyLog, error) {
	var (
		log       domain.DailyLog
		condition string
	)
	if err := row.Scan(&log.DateKey, &log.AMCompleted, &log.PMCompleted, &log.Notes, &log.CycleOrdinal, &condition); err != nil {
		return domain.DailyLog{}, err
	}
	log.SkinCondition = domain.SkinCondition(condition)
	if !log.SkinCondition.Valid() {
		log.SkinCondition = domain.SkinUnset
	}
	return log, nil
}

const logColumns = `log_date, am_completed, pm_completed, notes, cycle_ordinal, skin_condition`

// GetLog returns the stored log for date, or nil when there is none.
func (r *Repository) GetLog(ctx context.Context, profileID string, date calendar.Date) (*domain.DailyLog, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM daily_logs WHERE profile_id = ? AND log_date = ?`, profileID, date.String())
	log, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// UpsertLog replaces the whole record for the log's date.
func (r *Repository) UpsertLog(ctx context.Context, profileID string, log domain.DailyLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO daily_logs (profile_id, log_date, am_completed, pm_completed, notes, cycle_ordinal, skin_condition, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		profileID, log.DateKey.String(), log.AMCompleted, log.PMCompleted, log.Notes, log.CycleOrdinal, string(log.SkinCondition), now(),
	)
	if err != nil {
		return err
	}
	observability.RecordLogPersisted(time.Now())
	return nil
}

// ListLogs returns logs with from <= date <= to.
func (r *Repository) ListLogs(ctx context.Context, profileID string, from, to calendar.Date) (domain.Logs, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM daily_logs WHERE profile_id = ? AND log_date BETWEEN ? AND ?`,
		profileID, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(domain.Logs)
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out[log.DateKey] = log
	}
	return out, rows.Err()
}

// ListLogPage returns logs newest first, strictly before the cursor when one is given.
func (r *Repository) ListLogPage(ctx context.Context, profileID string, cursor *domain.Cursor, limit int) ([]domain.DailyLog, *domain.Cursor, error) {
	query := `SELECT ` + logColumns + ` FROM daily_logs WHERE profile_id = ?`
	args := []any{profileID}
	if cursor != nil {
		query += ` AND log_date < ?`
		args = append(args, cursor.Before.String())
	}
	query += ` ORDER BY log_date DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.DailyLog, 0, limit)
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, log)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		next = &domain.Cursor{Before: results[len(results)-1].DateKey}
	}
	return results, next, nil
}

// GetSettings returns stored settings. A malformed blob is logged and reported as absent.
func (r *Repository) GetSettings(ctx context.Context, profileID string) (*domain.Settings, error) {
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT settings FROM profiles WHERE profile_id = ?`, profileID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	settings, err := persistence.DecodeSettings([]byte(raw.String))
	if err != nil {
		r.logger.Warn("ignoring unreadable settings", zap.String("profile_id", profileID), zap.Error(err))
		return nil, nil
	}
	return settings, nil
}

// SaveSettings stores the settings blob.
func (r *Repository) SaveSettings(ctx context.Context, profileID string, settings domain.Settings) error {
	body, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return r.setProfileColumn(ctx, profileID, "settings", string(body))
}

// GetStartDate returns the cycle start date, or nil when unset or unreadable.
func (r *Repository) GetStartDate(ctx context.Context, profileID string) (*calendar.Date, error) {
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT start_date FROM profiles WHERE profile_id = ?`, profileID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	start, err := calendar.Parse(raw.String)
	if err != nil {
		r.logger.Warn("ignoring unreadable start date", zap.String("profile_id", profileID), zap.Error(err))
		return nil, nil
	}
	return &start, nil
}

// SetStartDate stores the cycle start date.
func (r *Repository) SetStartDate(ctx context.Context, profileID string, start calendar.Date) error {
	return r.setProfileColumn(ctx, profileID, "start_date", start.String())
}

// GetUserName returns the display name, or "" when unset.
func (r *Repository) GetUserName(ctx context.Context, profileID string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT user_name FROM profiles WHERE profile_id = ?`, profileID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}

// SetUserName stores the display name.
func (r *Repository) SetUserName(ctx context.Context, profileID, name string) error {
	return r.setProfileColumn(ctx, profileID, "user_name", name)
}

// setProfileColumn upserts a single profile column. column is always a literal from this file.
func (r *Repository) setProfileColumn(ctx context.Context, profileID, column string, value any) error {
	stmt := fmt.Sprintf(`INSERT INTO profiles (profile_id, %[1]s, updated_at) VALUES (?, ?, ?)
        ON CONFLICT (profile_id) DO UPDATE SET %[1]s = excluded.%[1]s, updated_at = excluded.updated_at`, column)
	_, err := r.db.ExecContext(ctx, stmt, profileID, value, now())
	return err
}
