// Package models provides data model definitions for Stillpoint Core.
package models

import "encoding/json"

// MutationItem represents one pending local change awaiting remote
// application. Items are immutable once enqueued except for the retry
// bookkeeping fields.
type MutationItem struct {
	ID            UUID            `json:"id"`
	EntityType    EntityType      `json:"entity_type"`
	Action        Action          `json:"action"`
	Payload       json.RawMessage `json:"payload"`
	EnqueuedAt    int64           `json:"enqueued_at"`
	Priority      Priority        `json:"priority"`
	RetryCount    int             `json:"retry_count"`
	LastAttemptAt int64           `json:"last_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
}

// RecordID extracts the target record's id from the payload.
// Returns empty string when the payload carries none.
func (m *MutationItem) RecordID() string {
	fields, err := m.PayloadFields()
	if err != nil {
		return ""
	}
	if id, ok := fields["id"].(string); ok {
		return id
	}
	return ""
}

// Timestamp returns the logical timestamp of the mutated data, used for
// last-write-wins comparison. Falls back to EnqueuedAt when the payload
// carries no updated_at/created_at field.
func (m *MutationItem) Timestamp() int64 {
	fields, err := m.PayloadFields()
	if err != nil {
		return m.EnqueuedAt
	}
	for _, key := range []string{"updated_at", "created_at"} {
		if v, ok := fields[key].(float64); ok {
			return int64(v)
		}
	}
	return m.EnqueuedAt
}

// PayloadFields unmarshals the payload into a generic field map.
func (m *MutationItem) PayloadFields() (map[string]interface{}, error) {
	if len(m.Payload) == 0 {
		return map[string]interface{}{}, nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(m.Payload, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// DeadLetter records a mutation dropped after exhausting its retries,
// kept so a permanently failed change is not lost silently.
type DeadLetter struct {
	Item      MutationItem `json:"item"`
	Reason    string       `json:"reason"`
	DroppedAt int64        `json:"dropped_at"`
}
