package outbox

const adherenceCompletedSchema = `{
  "type": "object",
  "title": "AdherenceCompleted",
  "properties": {
    "event_id": {"type": "string"},
    "profile_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "period": {"type": "string", "enum": ["am", "pm"]},
    "cycle_ordinal": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "profile_id", "date", "period", "cycle_ordinal", "occurred_at"],
  "additionalProperties": false
}`

const adherenceReopenedSchema = `{
  "type": "object",
  "title": "AdherenceReopened",
  "properties": {
    "event_id": {"type": "string"},
    "profile_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "period": {"type": "string", "enum": ["am", "pm"]},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "profile_id", "date", "period", "occurred_at"],
  "additionalProperties": false
}`
