// Package events defines the adherence event payloads shared by the API and the consumer.
package events

import "time"

// Event types written to the outbox.
const (
	TypeAdherenceCompleted = "adherence.completed"
	TypeAdherenceReopened  = "adherence.reopened"
)

// AdherenceCompleted is emitted when a routine period flips to completed.
type AdherenceCompleted struct {
	EventID      string    `json:"event_id"`
	ProfileID    string    `json:"profile_id"`
	Date         string    `json:"date"`
	Period       string    `json:"period"`
	CycleOrdinal int       `json:"cycle_ordinal"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// AdherenceReopened is emitted when a completed routine period is reopened.
type AdherenceReopened struct {
	EventID    string    `json:"event_id"`
	ProfileID  string    `json:"profile_id"`
	Date       string    `json:"date"`
	Period     string    `json:"period"`
	OccurredAt time.Time `json:"occurred_at"`
}
