// Package store implements the durable record store backing the sync engine.
package store

import (
	"encoding/json"
	"time"

	"github.com/evelynmak/stillpoint/core/internal/logging"
	"github.com/evelynmak/stillpoint/core/internal/models"
)

// ListMoodEntries returns mood entries newest-first. A limit <= 0 returns
// the whole collection. Read faults degrade to an empty slice.
func (s *Store) ListMoodEntries(limit int) []*models.MoodEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.MoodEntry
	s.readCollection(keyMoodEntries, &entries)

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// AddMoodEntry prepends a mood entry. When the collection exceeds its cap
// the oldest entries are truncated.
func (s *Store) AddMoodEntry(entry *models.MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.MoodEntry
	s.readCollection(keyMoodEntries, &entries)

	entries = append([]*models.MoodEntry{entry}, entries...)
	if len(entries) > s.moodCap {
		entries = entries[:s.moodCap]
	}
	return s.putLocked(keyMoodEntries, entries)
}

// UpdateMoodEntry applies a field patch to the entry with the given id.
// Returns whether a matching entry existed.
func (s *Store) UpdateMoodEntry(id string, patch map[string]interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.MoodEntry
	s.readCollection(keyMoodEntries, &entries)

	for i, entry := range entries {
		if string(entry.ID) != id {
			continue
		}
		patched, err := applyPatch(entry, patch)
		if err != nil {
			logging.Error("Failed to patch mood entry", err,
				map[string]interface{}{"id": id})
			return false
		}
		patched.ID = entry.ID
		patched.CreatedAt = entry.CreatedAt
		patched.UpdatedAt = time.Now().Unix()
		entries[i] = patched

		if err := s.putLocked(keyMoodEntries, entries); err != nil {
			logging.Error("Failed to persist mood entry update", err,
				map[string]interface{}{"id": id})
			return false
		}
		return true
	}
	return false
}

// DeleteMoodEntry removes the entry with the given id. Returns whether a
// matching entry existed.
func (s *Store) DeleteMoodEntry(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.MoodEntry
	s.readCollection(keyMoodEntries, &entries)

	for i, entry := range entries {
		if string(entry.ID) == id {
			entries = append(entries[:i], entries[i+1:]...)
			if err := s.putLocked(keyMoodEntries, entries); err != nil {
				logging.Error("Failed to persist mood entry delete", err,
					map[string]interface{}{"id": id})
				return false
			}
			return true
		}
	}
	return false
}

// ReplaceMoodEntries replaces the whole collection, applying the cap.
// Used by data import.
func (s *Store) ReplaceMoodEntries(entries []*models.MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) > s.moodCap {
		entries = entries[:s.moodCap]
	}
	return s.putLocked(keyMoodEntries, entries)
}

// ListSessions returns activity sessions newest-first. A limit <= 0 returns
// the whole collection. Read faults degrade to an empty slice.
func (s *Store) ListSessions(limit int) []*models.ActivitySession {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessions []*models.ActivitySession
	s.readCollection(keySessions, &sessions)

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions
}

// AddSession prepends an activity session, truncating beyond the cap.
func (s *Store) AddSession(session *models.ActivitySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessions []*models.ActivitySession
	s.readCollection(keySessions, &sessions)

	sessions = append([]*models.ActivitySession{session}, sessions...)
	if len(sessions) > s.sessionCap {
		sessions = sessions[:s.sessionCap]
	}
	return s.putLocked(keySessions, sessions)
}

// UpdateSession applies a field patch to the session with the given id.
// Returns whether a matching session existed.
func (s *Store) UpdateSession(id string, patch map[string]interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessions []*models.ActivitySession
	s.readCollection(keySessions, &sessions)

	for i, session := range sessions {
		if string(session.ID) != id {
			continue
		}
		patched, err := applyPatch(session, patch)
		if err != nil {
			logging.Error("Failed to patch session", err,
				map[string]interface{}{"id": id})
			return false
		}
		patched.ID = session.ID
		patched.CreatedAt = session.CreatedAt
		patched.UpdatedAt = time.Now().Unix()
		sessions[i] = patched

		if err := s.putLocked(keySessions, sessions); err != nil {
			logging.Error("Failed to persist session update", err,
				map[string]interface{}{"id": id})
			return false
		}
		return true
	}
	return false
}

// DeleteSession removes the session with the given id. Returns whether a
// matching session existed.
func (s *Store) DeleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessions []*models.ActivitySession
	s.readCollection(keySessions, &sessions)

	for i, session := range sessions {
		if string(session.ID) == id {
			sessions = append(sessions[:i], sessions[i+1:]...)
			if err := s.putLocked(keySessions, sessions); err != nil {
				logging.Error("Failed to persist session delete", err,
					map[string]interface{}{"id": id})
				return false
			}
			return true
		}
	}
	return false
}

// ReplaceSessions replaces the whole collection, applying the cap.
// Used by data import.
func (s *Store) ReplaceSessions(sessions []*models.ActivitySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sessions) > s.sessionCap {
		sessions = sessions[:s.sessionCap]
	}
	return s.putLocked(keySessions, sessions)
}

// PruneOlderThan removes entity records created before cutoff. The mutation
// queue is never pruned. Returns the number of removed records.
func (s *Store) PruneOlderThan(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := cutoff.Unix()
	removed := 0

	var entries []*models.MoodEntry
	s.readCollection(keyMoodEntries, &entries)
	kept := entries[:0]
	for _, entry := range entries {
		if entry.CreatedAt >= limit {
			kept = append(kept, entry)
		} else {
			removed++
		}
	}
	if err := s.putLocked(keyMoodEntries, kept); err != nil {
		return removed, err
	}

	var sessions []*models.ActivitySession
	s.readCollection(keySessions, &sessions)
	keptSessions := sessions[:0]
	for _, session := range sessions {
		if session.CreatedAt >= limit {
			keptSessions = append(keptSessions, session)
		} else {
			removed++
		}
	}
	if err := s.putLocked(keySessions, keptSessions); err != nil {
		return removed, err
	}

	return removed, nil
}

// applyPatch merges patch fields into record via its JSON form. The concrete
// record type T is reconstructed from the merged map.
func applyPatch[T any](record *T, patch map[string]interface{}) (*T, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var patched T
	if err := json.Unmarshal(merged, &patched); err != nil {
		return nil, err
	}
	return &patched, nil
}
