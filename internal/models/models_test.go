// Package models tests for data model definitions.
package models

import (
	"encoding/json"
	"testing"
)

// TestPriorityRank verifies drain ordering ranks.
func TestPriorityRank(t *testing.T) {
	if PriorityHigh.Rank() <= PriorityNormal.Rank() {
		t.Error("high should rank above normal")
	}
	if PriorityNormal.Rank() <= PriorityLow.Rank() {
		t.Error("normal should rank above low")
	}
	// Unknown priorities fall back to normal
	if Priority("urgent").Rank() != PriorityNormal.Rank() {
		t.Error("unknown priority should rank as normal")
	}
}

// TestEntityTypeValid verifies known and unknown entity types.
func TestEntityTypeValid(t *testing.T) {
	for _, e := range []EntityType{EntityMood, EntitySession, EntityPreferences} {
		if !e.Valid() {
			t.Errorf("%s should be valid", e)
		}
	}
	if EntityType("journal").Valid() {
		t.Error("unknown entity type should be invalid")
	}
}

// TestActionValid verifies known and unknown actions.
func TestActionValid(t *testing.T) {
	for _, a := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		if !a.Valid() {
			t.Errorf("%s should be valid", a)
		}
	}
	if Action("upsert").Valid() {
		t.Error("unknown action should be invalid")
	}
}

// TestMutationItemTimestamp verifies timestamp extraction from payloads.
func TestMutationItemTimestamp(t *testing.T) {
	item := &MutationItem{
		EnqueuedAt: 500,
		Payload:    json.RawMessage(`{"id":"a","updated_at":1234}`),
	}
	if got := item.Timestamp(); got != 1234 {
		t.Errorf("Timestamp() = %d, want 1234", got)
	}

	item.Payload = json.RawMessage(`{"id":"a","created_at":999}`)
	if got := item.Timestamp(); got != 999 {
		t.Errorf("Timestamp() = %d, want 999", got)
	}

	// No timestamp field falls back to EnqueuedAt
	item.Payload = json.RawMessage(`{"id":"a"}`)
	if got := item.Timestamp(); got != 500 {
		t.Errorf("Timestamp() = %d, want 500", got)
	}

	// Malformed payload also falls back
	item.Payload = json.RawMessage(`{`)
	if got := item.Timestamp(); got != 500 {
		t.Errorf("Timestamp() = %d, want 500", got)
	}
}

// TestMutationItemRecordID verifies record id extraction.
func TestMutationItemRecordID(t *testing.T) {
	item := &MutationItem{Payload: json.RawMessage(`{"id":"rec-1"}`)}
	if got := item.RecordID(); got != "rec-1" {
		t.Errorf("RecordID() = %q, want rec-1", got)
	}

	item.Payload = json.RawMessage(`{}`)
	if got := item.RecordID(); got != "" {
		t.Errorf("RecordID() = %q, want empty", got)
	}
}

// TestDefaultPreferences verifies default settings.
func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences()
	if prefs.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", prefs.RetentionDays)
	}
	if !prefs.RemindersEnabled {
		t.Error("RemindersEnabled should default to true")
	}
}
