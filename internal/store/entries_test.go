// Package store tests for typed entity collection accessors.
package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/evelynmak/stillpoint/core/internal/models"
	"github.com/evelynmak/stillpoint/core/internal/uuid"
)

// newMoodEntry builds an entry with a fixed creation time.
func newMoodEntry(mood string, createdAt int64) *models.MoodEntry {
	return &models.MoodEntry{
		ID:        models.UUID(uuid.New()),
		Mood:      mood,
		Intensity: 3,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// TestMoodEntriesNewestFirst verifies prepend ordering and limits.
func TestMoodEntriesNewestFirst(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		entry := newMoodEntry(fmt.Sprintf("mood-%d", i), int64(1000+i))
		if err := s.AddMoodEntry(entry); err != nil {
			t.Fatalf("AddMoodEntry() failed: %v", err)
		}
	}

	entries := s.ListMoodEntries(0)
	if len(entries) != 5 {
		t.Fatalf("ListMoodEntries() returned %d entries, want 5", len(entries))
	}
	// Last added comes first
	if entries[0].Mood != "mood-4" {
		t.Errorf("first entry = %s, want mood-4", entries[0].Mood)
	}
	if entries[4].Mood != "mood-0" {
		t.Errorf("last entry = %s, want mood-0", entries[4].Mood)
	}

	limited := s.ListMoodEntries(2)
	if len(limited) != 2 {
		t.Errorf("ListMoodEntries(2) returned %d entries, want 2", len(limited))
	}
	if limited[0].Mood != "mood-4" {
		t.Errorf("limited first entry = %s, want mood-4", limited[0].Mood)
	}
}

// TestMoodEntryCap verifies the 1001st entry evicts the oldest.
func TestMoodEntryCap(t *testing.T) {
	s := newTestStore(t)

	var firstID models.UUID
	for i := 0; i < 1001; i++ {
		entry := newMoodEntry(fmt.Sprintf("mood-%d", i), int64(1000+i))
		if i == 0 {
			firstID = entry.ID
		}
		if err := s.AddMoodEntry(entry); err != nil {
			t.Fatalf("AddMoodEntry() failed at %d: %v", i, err)
		}
	}

	entries := s.ListMoodEntries(0)
	if len(entries) != 1000 {
		t.Fatalf("collection length = %d, want 1000", len(entries))
	}

	for _, entry := range entries {
		if entry.ID == firstID {
			t.Fatal("oldest entry should have been evicted")
		}
	}
	if entries[0].Mood != "mood-1000" {
		t.Errorf("newest entry = %s, want mood-1000", entries[0].Mood)
	}
}

// TestUpdateMoodEntry verifies patch semantics and the existence result.
func TestUpdateMoodEntry(t *testing.T) {
	s := newTestStore(t)

	entry := newMoodEntry("anxious", 1000)
	if err := s.AddMoodEntry(entry); err != nil {
		t.Fatalf("AddMoodEntry() failed: %v", err)
	}

	ok := s.UpdateMoodEntry(string(entry.ID), map[string]interface{}{
		"mood":      "calm",
		"intensity": 2,
	})
	if !ok {
		t.Fatal("UpdateMoodEntry() should report an existing entry")
	}

	updated := s.ListMoodEntries(1)[0]
	if updated.Mood != "calm" {
		t.Errorf("Mood = %s, want calm", updated.Mood)
	}
	if updated.Intensity != 2 {
		t.Errorf("Intensity = %d, want 2", updated.Intensity)
	}
	// Identity and creation time survive a patch
	if updated.ID != entry.ID {
		t.Error("patch must not change the entry id")
	}
	if updated.CreatedAt != 1000 {
		t.Errorf("CreatedAt = %d, want 1000", updated.CreatedAt)
	}

	if s.UpdateMoodEntry(uuid.New(), map[string]interface{}{"mood": "x"}) {
		t.Error("UpdateMoodEntry() should report a missing entry")
	}
}

// TestDeleteMoodEntry verifies removal and the existence result.
func TestDeleteMoodEntry(t *testing.T) {
	s := newTestStore(t)

	entry := newMoodEntry("tired", 1000)
	if err := s.AddMoodEntry(entry); err != nil {
		t.Fatalf("AddMoodEntry() failed: %v", err)
	}

	if !s.DeleteMoodEntry(string(entry.ID)) {
		t.Error("DeleteMoodEntry() should report an existing entry")
	}
	if len(s.ListMoodEntries(0)) != 0 {
		t.Error("entry should be gone after delete")
	}
	if s.DeleteMoodEntry(string(entry.ID)) {
		t.Error("DeleteMoodEntry() should report a missing entry on second call")
	}
}

// TestSessionCap verifies the session collection cap of 500.
func TestSessionCap(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 501; i++ {
		session := &models.ActivitySession{
			ID:              models.UUID(uuid.New()),
			Activity:        "breathing",
			DurationSeconds: 120,
			Completed:       true,
			CreatedAt:       int64(1000 + i),
		}
		if err := s.AddSession(session); err != nil {
			t.Fatalf("AddSession() failed at %d: %v", i, err)
		}
	}

	sessions := s.ListSessions(0)
	if len(sessions) != 500 {
		t.Errorf("collection length = %d, want 500", len(sessions))
	}
	if sessions[0].CreatedAt != 1500 {
		t.Errorf("newest session CreatedAt = %d, want 1500", sessions[0].CreatedAt)
	}
}

// TestPruneOlderThan verifies the retention sweep spares the queue.
func TestPruneOlderThan(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	old := now.AddDate(0, 0, -60).Unix()
	recent := now.AddDate(0, 0, -5).Unix()

	s.AddMoodEntry(newMoodEntry("old", old))
	s.AddMoodEntry(newMoodEntry("recent", recent))
	s.AddSession(&models.ActivitySession{
		ID: models.UUID(uuid.New()), Activity: "meditation", CreatedAt: old,
	})

	// A queued mutation must survive any sweep
	item := &models.MutationItem{
		ID:         models.UUID(uuid.New()),
		EntityType: models.EntityMood,
		Action:     models.ActionCreate,
		EnqueuedAt: old,
		Priority:   models.PriorityNormal,
	}
	if err := s.AppendQueueItem(item); err != nil {
		t.Fatalf("AppendQueueItem() failed: %v", err)
	}

	cutoff := now.AddDate(0, 0, -30)
	removed, err := s.PruneOlderThan(cutoff)
	if err != nil {
		t.Fatalf("PruneOlderThan() failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	entries := s.ListMoodEntries(0)
	if len(entries) != 1 || entries[0].Mood != "recent" {
		t.Errorf("prune kept wrong entries: %+v", entries)
	}
	if len(s.ListSessions(0)) != 0 {
		t.Error("old session should have been pruned")
	}
	if len(s.ListQueueItems()) != 1 {
		t.Error("queue items must never be pruned")
	}
}
