// Package rescue tracks which client sessions are showing the rescue routine.
// State lives only in process memory and is lost on restart.
package rescue

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/observability"
)

type key struct {
	profileID string
	sessionID string
}

// Registry maps (profile, session) pairs to the day rescue mode was switched on.
// An activation only applies to that day.
type Registry struct {
	mu       sync.Mutex
	sessions map[key]calendar.Date
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[key]calendar.Date)}
}

// NewSessionID returns a fresh opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Session returns the rescue state of a session for today.
func (r *Registry) Session(profileID, sessionID string, today calendar.Date) *domain.RescueSession {
	session := &domain.RescueSession{}
	if sessionID == "" {
		return session
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{profileID, sessionID}
	day, ok := r.sessions[k]
	if !ok {
		return session
	}
	if day != today {
		delete(r.sessions, k)
		return session
	}
	session.Activate()
	return session
}

// Activate turns rescue mode on for the session and returns the substituted PM steps.
// Activations left over from earlier days are dropped on the way.
func (r *Registry) Activate(profileID, sessionID string, today calendar.Date) []domain.RoutineStep {
	r.mu.Lock()
	for k, day := range r.sessions {
		if day != today {
			delete(r.sessions, k)
		}
	}
	r.sessions[key{profileID, sessionID}] = today
	active := len(r.sessions)
	r.mu.Unlock()

	observability.RecordRescueToggle("activate", active)
	var session domain.RescueSession
	return session.Activate()
}

// Deactivate turns rescue mode off for the session. It is a no-op when already off.
func (r *Registry) Deactivate(profileID, sessionID string) {
	r.mu.Lock()
	delete(r.sessions, key{profileID, sessionID})
	active := len(r.sessions)
	r.mu.Unlock()

	observability.RecordRescueToggle("deactivate", active)
}

// ActiveCount returns the number of sessions currently in rescue mode.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
