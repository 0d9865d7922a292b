// Package memory keeps profiles and logs in process memory for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
)

type profile struct {
	settings  *domain.Settings
	startDate *calendar.Date
	userName  string
	logs      map[calendar.Date]domain.DailyLog
}

// Repository implements domain.Repository. Writes replace whole values; the mutex only
// keeps the maps safe for concurrent HTTP handlers.
type Repository struct {
	mu       sync.RWMutex
	profiles map[string]*profile
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{profiles: make(map[string]*profile)}
}

func (r *Repository) profileLocked(id string) *profile {
	p, ok := r.profiles[id]
	if !ok {
		p = &profile{logs: make(map[calendar.Date]domain.DailyLog)}
		r.profiles[id] = p
	}
	return p
}

// GetLog implements domain.LogRepository.
func (r *Repository) GetLog(ctx context.Context, profileID string, date calendar.Date) (*domain.DailyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[profileID]
	if !ok {
		return nil, nil
	}
	log, ok := p.logs[date]
	if !ok {
		return nil, nil
	}
	return &log, nil
}

// UpsertLog implements domain.LogRepository.
func (r *Repository) UpsertLog(ctx context.Context, profileID string, log domain.DailyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profileLocked(profileID).logs[log.DateKey] = log
	return nil
}

// ListLogs implements domain.LogRepository.
func (r *Repository) ListLogs(ctx context.Context, profileID string, from, to calendar.Date) (domain.Logs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(domain.Logs)
	p, ok := r.profiles[profileID]
	if !ok {
		return out, nil
	}
	for date, log := range p.logs {
		if date.Before(from) || date.After(to) {
			continue
		}
		out[date] = log
	}
	return out, nil
}

// ListLogPage implements domain.LogRepository, newest first.
func (r *Repository) ListLogPage(ctx context.Context, profileID string, cursor *domain.Cursor, limit int) ([]domain.DailyLog, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[profileID]
	if !ok {
		return []domain.DailyLog{}, nil, nil
	}
	results := make([]domain.DailyLog, 0, len(p.logs))
	for date, log := range p.logs {
		if cursor != nil && !date.Before(cursor.Before) {
			continue
		}
		results = append(results, log)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].DateKey.After(results[j].DateKey)
	})

	if limit <= 0 || len(results) <= limit {
		return results, nil, nil
	}
	results = results[:limit]
	return results, &domain.Cursor{Before: results[len(results)-1].DateKey}, nil
}

// GetSettings implements domain.ProfileRepository.
func (r *Repository) GetSettings(ctx context.Context, profileID string) (*domain.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[profileID]
	if !ok || p.settings == nil {
		return nil, nil
	}
	settings := p.settings.Clone()
	return &settings, nil
}

// SaveSettings implements domain.ProfileRepository.
func (r *Repository) SaveSettings(ctx context.Context, profileID string, settings domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := settings.Clone()
	r.profileLocked(profileID).settings = &clone
	return nil
}

// GetStartDate implements domain.ProfileRepository.
func (r *Repository) GetStartDate(ctx context.Context, profileID string) (*calendar.Date, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[profileID]
	if !ok || p.startDate == nil {
		return nil, nil
	}
	start := *p.startDate
	return &start, nil
}

// SetStartDate implements domain.ProfileRepository.
func (r *Repository) SetStartDate(ctx context.Context, profileID string, start calendar.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profileLocked(profileID).startDate = &start
	return nil
}

// GetUserName implements domain.ProfileRepository.
func (r *Repository) GetUserName(ctx context.Context, profileID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.profiles[profileID]; ok {
		return p.userName, nil
	}
	return "", nil
}

// SetUserName implements domain.ProfileRepository.
func (r *Repository) SetUserName(ctx context.Context, profileID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profileLocked(profileID).userName = name
	return nil
}
