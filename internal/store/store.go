// Package store implements the durable record store backing the sync engine.
// All persisted state lives in a single SQLite key/value table, one storage
// key per logical collection, with JSON-encoded values.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/evelynmak/stillpoint/core/internal/config"
	"github.com/evelynmak/stillpoint/core/internal/db"
	"github.com/evelynmak/stillpoint/core/internal/errors"
	"github.com/evelynmak/stillpoint/core/internal/logging"
)

// Storage keys. One key per logical collection or scalar.
const (
	keyMoodEntries     = "mood_entries"
	keySessions        = "activity_sessions"
	keyQueue           = "mutation_queue"
	keyPreferences     = "preferences"
	keyLastSync        = "last_sync_timestamp"
	keyLastConnected   = "last_connected"
	keyOfflineDuration = "offline_duration"
	keyEventLog        = "connectivity_events"
	keyConflictLog     = "conflict_log"
	keyDeadLetters     = "dead_letters"
)

// Store provides durable persistence for entity collections, the mutation
// queue, and sync metadata. Read-modify-write sequences on collection keys
// are serialized by the internal mutex; no caller holds a long-lived copy
// it writes back independently.
type Store struct {
	db *sql.DB
	mu sync.Mutex

	moodCap    int
	sessionCap int
	eventCap   int

	defaultRetentionDays int
}

// New creates a Store over an opened database.
func New(database *db.DB, cfg config.StoreConfig) *Store {
	return &Store{
		db:                   database.DB,
		moodCap:              cfg.MoodEntryCap,
		sessionCap:           cfg.SessionCap,
		eventCap:             cfg.EventLogCap,
		defaultRetentionDays: cfg.DefaultRetentionDays,
	}
}

// Put serializes value as JSON and stores it under key. Serialization and
// I/O failures are returned to the caller, never swallowed.
func (s *Store) Put(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(key, value)
}

// Get deserializes the value stored under key into out. The boolean reports
// whether the key was present.
func (s *Store) Get(key string, out interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key, out)
}

// Remove deletes the value stored under key. Removing an absent key is not
// an error.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM records WHERE key = ?", key); err != nil {
		return errors.Wrap(errors.ErrStorage, fmt.Sprintf("failed to remove %q", key), err)
	}
	return nil
}

// Keys returns all stored keys, for diagnostics and export.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM records ORDER BY key")
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "failed to list keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(errors.ErrStorage, "failed to scan key", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// putLocked writes a key while the store mutex is held.
func (s *Store) putLocked(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(errors.ErrSerialize, fmt.Sprintf("failed to encode %q", key), err)
	}

	_, err = s.db.Exec(`
	INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().Unix())
	if err != nil {
		return errors.Wrap(errors.ErrStorage, fmt.Sprintf("failed to persist %q", key), err)
	}
	return nil
}

// getLocked reads a key while the store mutex is held.
func (s *Store) getLocked(key string, out interface{}) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM records WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.ErrStorage, fmt.Sprintf("failed to read %q", key), err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, errors.Wrap(errors.ErrSerialize, fmt.Sprintf("failed to decode %q", key), err)
	}
	return true, nil
}

// readCollection loads a collection key into out, degrading to the zero
// value on any fault. Storage faults on read paths are logged and absorbed
// so UI callers always get a usable (possibly empty) result.
func (s *Store) readCollection(key string, out interface{}) {
	if _, err := s.getLocked(key, out); err != nil {
		logging.Error("Record store read degraded to empty", err,
			map[string]interface{}{"key": key})
	}
}
