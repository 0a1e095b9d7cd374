// Package store implements the durable record store backing the sync engine.
package store

import (
	"fmt"
	"time"

	"github.com/evelynmak/stillpoint/core/internal/errors"
	"github.com/evelynmak/stillpoint/core/internal/models"
)

// Queue accessors. Lifecycle transitions on queue items are driven only by
// the mutation queue processor; no other component writes this collection.

// ListQueueItems returns all pending mutation items in stored order.
// Read faults degrade to an empty slice.
func (s *Store) ListQueueItems() []*models.MutationItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*models.MutationItem
	s.readCollection(keyQueue, &items)
	return items
}

// AppendQueueItem persists a new mutation item at the end of the queue.
func (s *Store) AppendQueueItem(item *models.MutationItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*models.MutationItem
	s.readCollection(keyQueue, &items)

	items = append(items, item)
	return s.putLocked(keyQueue, items)
}

// UpdateQueueItem replaces the stored item with the same id, used to bump
// retry bookkeeping. Returns an error when the item is gone.
func (s *Store) UpdateQueueItem(item *models.MutationItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*models.MutationItem
	s.readCollection(keyQueue, &items)

	for i, existing := range items {
		if existing.ID == item.ID {
			items[i] = item
			return s.putLocked(keyQueue, items)
		}
	}
	return errors.New(errors.ErrNotFound, fmt.Sprintf("queue item %s not found", item.ID))
}

// RemoveQueueItem deletes the item with the given id. Removing an absent
// item is not an error; removal happens exactly once per item lifecycle.
func (s *Store) RemoveQueueItem(id models.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*models.MutationItem
	s.readCollection(keyQueue, &items)

	for i, item := range items {
		if item.ID == id {
			items = append(items[:i], items[i+1:]...)
			return s.putLocked(keyQueue, items)
		}
	}
	return nil
}

// ClearQueue empties the mutation queue.
func (s *Store) ClearQueue() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(keyQueue, []*models.MutationItem{})
}

// AppendDeadLetter records a mutation dropped after exhausting retries.
// The dead-letter log is bounded like the event log.
func (s *Store) AppendDeadLetter(item *models.MutationItem, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var letters []*models.DeadLetter
	s.readCollection(keyDeadLetters, &letters)

	letters = append(letters, &models.DeadLetter{
		Item:      *item,
		Reason:    reason,
		DroppedAt: time.Now().Unix(),
	})
	if len(letters) > s.eventCap {
		letters = letters[len(letters)-s.eventCap:]
	}
	if err := s.putLocked(keyDeadLetters, letters); err != nil {
		// Best effort; the drop itself already happened
		s.logDegradedWrite(keyDeadLetters, err)
	}
}

// DeadLetters returns the bounded log of permanently dropped mutations.
func (s *Store) DeadLetters() []*models.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()

	var letters []*models.DeadLetter
	s.readCollection(keyDeadLetters, &letters)
	return letters
}
