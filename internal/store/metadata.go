// Package store implements the durable record store backing the sync engine.
package store

import (
	"github.com/evelynmak/stillpoint/core/internal/logging"
	"github.com/evelynmak/stillpoint/core/internal/models"
)

// LastSyncTimestamp returns the timestamp of the last completed drain pass,
// or zero when no drain has completed yet.
func (s *Store) LastSyncTimestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ts int64
	s.readCollection(keyLastSync, &ts)
	return ts
}

// SetLastSyncTimestamp persists the last-sync timestamp. The stored value is
// monotonically non-decreasing; an older timestamp is ignored.
func (s *Store) SetLastSyncTimestamp(ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	s.readCollection(keyLastSync, &current)
	if ts <= current {
		return nil
	}
	return s.putLocked(keyLastSync, ts)
}

// Preferences returns the stored user preferences, falling back to defaults
// when none are stored or the read degrades.
func (s *Store) Preferences() *models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prefs *models.Preferences
	s.readCollection(keyPreferences, &prefs)
	if prefs == nil {
		prefs = models.DefaultPreferences()
		if s.defaultRetentionDays > 0 {
			prefs.RetentionDays = s.defaultRetentionDays
		}
	}
	return prefs
}

// SavePreferences persists user preferences.
func (s *Store) SavePreferences(prefs *models.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(keyPreferences, prefs)
}

// RetentionDays returns the active retention window for the sweep.
func (s *Store) RetentionDays() int {
	return s.Preferences().RetentionDays
}

// SaveConnectionMeta persists the time of the last successful connection and
// the duration of the preceding offline period in seconds.
func (s *Store) SaveConnectionMeta(lastConnected, offlineSeconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.putLocked(keyLastConnected, lastConnected); err != nil {
		return err
	}
	return s.putLocked(keyOfflineDuration, offlineSeconds)
}

// AppendConnectivityEvent appends to the bounded connectivity event log.
// Write faults are logged and absorbed; the transition itself proceeds.
func (s *Store) AppendConnectivityEvent(event *models.ConnectivityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []*models.ConnectivityEvent
	s.readCollection(keyEventLog, &events)

	events = append(events, event)
	if len(events) > s.eventCap {
		events = events[len(events)-s.eventCap:]
	}
	if err := s.putLocked(keyEventLog, events); err != nil {
		s.logDegradedWrite(keyEventLog, err)
	}
}

// ConnectivityEvents returns the bounded connectivity event log, oldest first.
func (s *Store) ConnectivityEvents() []*models.ConnectivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []*models.ConnectivityEvent
	s.readCollection(keyEventLog, &events)
	return events
}

// AppendConflictLog appends to the bounded conflict resolution log.
func (s *Store) AppendConflictLog(entry *models.ConflictLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.ConflictLog
	s.readCollection(keyConflictLog, &entries)

	entries = append(entries, entry)
	if len(entries) > s.eventCap {
		entries = entries[len(entries)-s.eventCap:]
	}
	if err := s.putLocked(keyConflictLog, entries); err != nil {
		s.logDegradedWrite(keyConflictLog, err)
	}
}

// ConflictLogs returns the bounded conflict resolution log, oldest first.
func (s *Store) ConflictLogs() []*models.ConflictLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.ConflictLog
	s.readCollection(keyConflictLog, &entries)
	return entries
}

// logDegradedWrite reports an absorbed best-effort write fault.
func (s *Store) logDegradedWrite(key string, err error) {
	logging.Error("Record store write degraded", err,
		map[string]interface{}{"key": key})
}
