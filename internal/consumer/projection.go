package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/pkg/events"
)

// AdherenceEvent is the union of the completed and reopened payloads.
type AdherenceEvent struct {
	EventID      string        `json:"event_id"`
	EventType    string        `json:"-"`
	ProfileID    string        `json:"profile_id"`
	Date         calendar.Date `json:"date"`
	Period       domain.Period `json:"period"`
	CycleOrdinal int           `json:"cycle_ordinal"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// Snapshot is the projected adherence state of one profile.
type Snapshot struct {
	ProfileID     string
	Streak        int
	LastEventType string
	LastLogDate   calendar.Date
	LastEventAt   time.Time
}

// SnapshotStore persists consumed events and the resulting snapshots.
// RecordEvent reports false when the event was already recorded.
type SnapshotStore interface {
	RecordEvent(ctx context.Context, evt AdherenceEvent) (bool, error)
	SaveSnapshot(ctx context.Context, snap Snapshot) error
}

// LogLister is the read side of the daily log store.
type LogLister interface {
	ListLogs(ctx context.Context, profileID string, from, to calendar.Date) (domain.Logs, error)
}

// ProjectionHandler recomputes a profile's streak from stored logs for every adherence event.
type ProjectionHandler struct {
	logs  LogLister
	store SnapshotStore
	today func() calendar.Date
}

// NewProjectionHandler constructs a handler. A nil today uses the process-local date.
func NewProjectionHandler(logs LogLister, store SnapshotStore, today func() calendar.Date) *ProjectionHandler {
	if today == nil {
		today = func() calendar.Date { return calendar.Today(nil) }
	}
	return &ProjectionHandler{logs: logs, store: store, today: today}
}

// Handle implements Handler. Unknown event types are acknowledged without effect.
func (h *ProjectionHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case events.TypeAdherenceCompleted, events.TypeAdherenceReopened:
	default:
		return nil
	}

	var evt AdherenceEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return fmt.Errorf("decode %s: %w", msg.EventType, err)
	}
	evt.EventType = msg.EventType
	if evt.ProfileID == "" {
		evt.ProfileID = msg.ProfileID
	}
	if evt.ProfileID == "" || evt.EventID == "" {
		return fmt.Errorf("decode %s: missing profile_id or event_id", msg.EventType)
	}

	fresh, err := h.store.RecordEvent(ctx, evt)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	if !fresh {
		return nil
	}

	today := h.today()
	logs, err := h.logs.ListLogs(ctx, evt.ProfileID, today.AddDays(-domain.MaxStreakWalk), today)
	if err != nil {
		return fmt.Errorf("list logs: %w", err)
	}
	streak := domain.ComputeStreak(logs, today)

	if err := h.store.SaveSnapshot(ctx, Snapshot{
		ProfileID:     evt.ProfileID,
		Streak:        streak,
		LastEventType: evt.EventType,
		LastLogDate:   evt.Date,
		LastEventAt:   evt.OccurredAt,
	}); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	recordStreak(streak)
	return nil
}
