// Package sync implements the mutation queue processor.
package sync

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/evelynmak/stillpoint/core/internal/config"
	apperrors "github.com/evelynmak/stillpoint/core/internal/errors"
	"github.com/evelynmak/stillpoint/core/internal/logging"
	"github.com/evelynmak/stillpoint/core/internal/models"
	"github.com/evelynmak/stillpoint/core/internal/store"
	"github.com/evelynmak/stillpoint/core/internal/sync/conflict"
	"github.com/evelynmak/stillpoint/core/internal/uuid"
)

// DrainResult aggregates one drain pass.
type DrainResult struct {
	Synced int
	Failed int
	Errors []string
}

// Status is a snapshot of the queue for status displays.
type Status struct {
	TotalItems        int
	PendingItems      int
	FailedItems       int // items with at least one failed attempt
	LastSyncTimestamp int64
	IsOnline          bool
}

// Processor owns the mutation queue lifecycle: it accepts new mutations,
// drains the queue when connectivity allows, retries with exponential
// backoff, and resolves create conflicts last-writer-wins.
type Processor struct {
	cfg      config.SyncConfig
	store    *store.Store
	remote   RemoteStore
	conn     Connectivity
	resolver *conflict.Resolver

	mu       sync.Mutex
	draining bool
	timers   map[models.UUID]*time.Timer
}

// NewProcessor creates a Processor over the given store and remote.
func NewProcessor(cfg config.SyncConfig, st *store.Store, remote RemoteStore, conn Connectivity) *Processor {
	return &Processor{
		cfg:      cfg,
		store:    st,
		remote:   remote,
		conn:     conn,
		resolver: conflict.NewResolver(conflict.StrategyLastWriteWins),
		timers:   make(map[models.UUID]*time.Timer),
	}
}

// Enqueue persists a new mutation item. When currently online, a drain is
// triggered fire-and-forget; the caller never blocks on the network.
func (p *Processor) Enqueue(entityType models.EntityType, action models.Action, payload map[string]interface{}, priority models.Priority) (*models.MutationItem, error) {
	if !entityType.Valid() {
		return nil, apperrors.New(apperrors.ErrInvalid, fmt.Sprintf("unknown entity type %q", entityType))
	}
	if !action.Valid() {
		return nil, apperrors.New(apperrors.ErrInvalid, fmt.Sprintf("unknown action %q", action))
	}
	if priority == "" {
		priority = models.PriorityNormal
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSerialize, "failed to encode mutation payload", err)
	}

	item := &models.MutationItem{
		ID:         models.UUID(uuid.New()),
		EntityType: entityType,
		Action:     action,
		Payload:    raw,
		EnqueuedAt: time.Now().Unix(),
		Priority:   priority,
	}

	if err := p.store.AppendQueueItem(item); err != nil {
		return nil, err
	}

	logging.Debug("Mutation enqueued", map[string]interface{}{
		"id":          string(item.ID),
		"entity_type": string(entityType),
		"action":      string(action),
		"priority":    string(priority),
	})

	if p.conn.IsOnline() {
		go func() {
			if _, err := p.Drain(context.Background()); err != nil {
				logging.Debug("Post-enqueue drain skipped", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	return item, nil
}

// Drain runs one complete pass over the queue. At most one drain executes
// at a time; a concurrent call returns immediately with a zero result and
// an explanatory error. Per-item failures never abort the pass; an
// authentication failure from the remote does.
func (p *Processor) Drain(ctx context.Context) (*DrainResult, error) {
	result := &DrainResult{}

	if !p.conn.IsOnline() {
		return result, apperrors.New(apperrors.ErrSyncOffline, "cannot drain while offline")
	}

	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return result, apperrors.New(apperrors.ErrSyncInProgress, "a drain is already running")
	}
	p.draining = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.draining = false
		p.mu.Unlock()
	}()

	items := p.store.ListQueueItems()
	if len(items) == 0 {
		return result, nil
	}

	// Priority descending, then oldest first within a tier. The sort must
	// be stable so equal items keep their enqueue order.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority.Rank() != items[j].Priority.Rank() {
			return items[i].Priority.Rank() > items[j].Priority.Rank()
		}
		return items[i].EnqueuedAt < items[j].EnqueuedAt
	})

	logging.Info("Draining mutation queue", map[string]interface{}{
		"items": len(items),
	})

	for _, item := range items {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		err := p.processItem(ctx, item)
		if err == nil {
			if removeErr := p.store.RemoveQueueItem(item.ID); removeErr != nil {
				logging.Error("Failed to remove synced queue item", removeErr,
					map[string]interface{}{"id": string(item.ID)})
			}
			result.Synced++
			continue
		}

		if isAuthFailure(err) {
			// Retrying every item individually is pointless without an
			// identity; abort the whole pass.
			result.Errors = append(result.Errors, itemError(item, err))
			return result, apperrors.Wrap(apperrors.ErrSyncAuthFailed, "drain aborted", err)
		}

		result.Failed++
		result.Errors = append(result.Errors, itemError(item, err))
		p.handleFailure(item, err)
	}

	if err := p.store.SetLastSyncTimestamp(time.Now().Unix()); err != nil {
		logging.Error("Failed to persist last-sync timestamp", err)
	}

	logging.Info("Drain pass finished", map[string]interface{}{
		"synced": result.Synced,
		"failed": result.Failed,
	})

	return result, nil
}

// ForceDrain is Drain without the silent offline no-op: draining while
// offline fails fast with an explicit error.
func (p *Processor) ForceDrain(ctx context.Context) (*DrainResult, error) {
	if !p.conn.IsOnline() {
		return &DrainResult{}, apperrors.New(apperrors.ErrSyncOffline, "force drain requested while offline")
	}
	return p.Drain(ctx)
}

// GetStatus returns a queue snapshot.
func (p *Processor) GetStatus() *Status {
	items := p.store.ListQueueItems()

	status := &Status{
		TotalItems:        len(items),
		LastSyncTimestamp: p.store.LastSyncTimestamp(),
		IsOnline:          p.conn.IsOnline(),
	}
	for _, item := range items {
		if item.RetryCount > 0 {
			status.FailedItems++
		} else {
			status.PendingItems++
		}
	}
	return status
}

// Clear cancels all scheduled retries and empties the queue. Used only for
// explicit user-initiated data deletion.
func (p *Processor) Clear() error {
	p.mu.Lock()
	for id, timer := range p.timers {
		timer.Stop()
		delete(p.timers, id)
	}
	p.mu.Unlock()

	if err := p.store.ClearQueue(); err != nil {
		return err
	}

	logging.Info("Mutation queue cleared")
	return nil
}

// processItem applies one mutation against the remote store.
func (p *Processor) processItem(ctx context.Context, item *models.MutationItem) error {
	fields, err := item.PayloadFields()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSerialize, "mutation payload is malformed", err)
	}

	id := item.RecordID()
	if id == "" {
		if item.EntityType != models.EntityPreferences {
			return apperrors.New(apperrors.ErrInvalid, "mutation payload carries no record id")
		}
		// Preferences are a per-user singleton
		id = "preferences"
	}

	entity := string(item.EntityType)

	switch item.Action {
	case models.ActionCreate:
		return p.applyCreate(ctx, item, entity, id, fields)
	case models.ActionUpdate:
		return p.remote.Update(ctx, entity, id, fields)
	case models.ActionDelete:
		return p.remote.Delete(ctx, entity, id)
	default:
		return apperrors.New(apperrors.ErrInvalid, fmt.Sprintf("unknown action %q", item.Action))
	}
}

// applyCreate inserts a record remotely, resolving a pre-existing remote
// record with the same id last-writer-wins.
func (p *Processor) applyCreate(ctx context.Context, item *models.MutationItem, entity, id string, fields map[string]interface{}) error {
	remoteData, exists, err := p.remote.Fetch(ctx, entity, id)
	if err != nil {
		return err
	}

	if !exists {
		return p.remote.Create(ctx, entity, id, fields)
	}

	res, err := p.resolver.Resolve(&conflict.Conflict{
		ItemID:          id,
		EntityType:      entity,
		LocalData:       fields,
		RemoteData:      remoteData,
		LocalTimestamp:  item.Timestamp(),
		RemoteTimestamp: remoteTimestamp(remoteData),
	})
	if err != nil {
		return err
	}
	p.store.AppendConflictLog(res.Log)

	if res.Outcome == conflict.OutcomeLocalWins {
		return p.remote.Update(ctx, entity, id, fields)
	}

	// Remote wins: converge the local record on the remote version and
	// perform no remote write.
	p.overwriteLocal(item.EntityType, id, remoteData)
	return nil
}

// overwriteLocal replaces the local copy of a record with remote data
// after the remote side won a conflict.
func (p *Processor) overwriteLocal(entityType models.EntityType, id string, data map[string]interface{}) {
	var ok bool
	switch entityType {
	case models.EntityMood:
		ok = p.store.UpdateMoodEntry(id, data)
	case models.EntitySession:
		ok = p.store.UpdateSession(id, data)
	case models.EntityPreferences:
		prefs := p.store.Preferences()
		if patched, err := mergePreferences(prefs, data); err == nil {
			ok = p.store.SavePreferences(patched) == nil
		}
	}
	if !ok {
		logging.Warn("Local record missing during conflict convergence",
			map[string]interface{}{"entity_type": string(entityType), "id": id})
	}
}

// handleFailure bumps retry bookkeeping and either schedules a backoff
// retry or drops the item after the final attempt.
func (p *Processor) handleFailure(item *models.MutationItem, cause error) {
	item.RetryCount++
	item.LastError = cause.Error()
	item.LastAttemptAt = time.Now().Unix()

	if item.RetryCount >= p.cfg.MaxRetries {
		p.cancelRetry(item.ID)
		if err := p.store.RemoveQueueItem(item.ID); err != nil {
			logging.Error("Failed to drop exhausted queue item", err,
				map[string]interface{}{"id": string(item.ID)})
			return
		}
		p.store.AppendDeadLetter(item, "max retries reached")
		logging.ErrorWithCode("Mutation dropped after max retries",
			string(apperrors.ErrSyncMaxRetries), cause,
			map[string]interface{}{
				"id":          string(item.ID),
				"entity_type": string(item.EntityType),
				"retry_count": item.RetryCount,
			})
		return
	}

	if err := p.store.UpdateQueueItem(item); err != nil {
		logging.Error("Failed to persist retry bookkeeping", err,
			map[string]interface{}{"id": string(item.ID)})
		return
	}

	delay := p.backoffDelay(item.RetryCount)
	p.scheduleRetry(item.ID, delay)

	logging.Warn("Mutation failed, retry scheduled", map[string]interface{}{
		"id":          string(item.ID),
		"retry_count": item.RetryCount,
		"delay_ms":    delay.Milliseconds(),
		"error":       cause.Error(),
	})
}

// backoffDelay computes baseDelay * 2^(retryCount-1) plus random jitter.
func (p *Processor) backoffDelay(retryCount int) time.Duration {
	delay := p.cfg.BaseBackoff * (1 << uint(retryCount-1))
	if p.cfg.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.cfg.MaxJitter)))
	}
	return delay
}

// scheduleRetry arms a cancellable timer that triggers a fresh drain once
// the backoff elapses. Timers are keyed by item id so Clear can cancel
// every outstanding retry deterministically.
func (p *Processor) scheduleRetry(id models.UUID, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.timers[id]; ok {
		existing.Stop()
	}

	p.timers[id] = time.AfterFunc(delay, func() {
		p.mu.Lock()
		delete(p.timers, id)
		p.mu.Unlock()

		if !p.conn.IsOnline() {
			return
		}
		if _, err := p.Drain(context.Background()); err != nil {
			logging.Debug("Retry drain skipped", map[string]interface{}{
				"error": err.Error(),
			})
		}
	})
}

// cancelRetry disarms the retry timer for an item, if one exists.
func (p *Processor) cancelRetry(id models.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if timer, ok := p.timers[id]; ok {
		timer.Stop()
		delete(p.timers, id)
	}
}

// pendingRetryCount reports armed retry timers, for tests and diagnostics.
func (p *Processor) pendingRetryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.timers)
}

// itemError formats one per-item error string.
func itemError(item *models.MutationItem, err error) string {
	return fmt.Sprintf("%s:%s - %s", item.EntityType, item.Action, err.Error())
}

// isAuthFailure reports whether err is a non-retryable identity failure.
func isAuthFailure(err error) bool {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == apperrors.ErrSyncAuthFailed
	}
	return false
}

// remoteTimestamp extracts the logical timestamp from a remote record.
func remoteTimestamp(data map[string]interface{}) int64 {
	for _, key := range []string{"updated_at", "created_at"} {
		if v, ok := data[key].(float64); ok {
			return int64(v)
		}
		if v, ok := data[key].(int64); ok {
			return v
		}
	}
	return 0
}

// mergePreferences applies remote preference fields over the local copy.
func mergePreferences(local *models.Preferences, data map[string]interface{}) (*models.Preferences, error) {
	raw, err := json.Marshal(local)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for k, v := range data {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var prefs models.Preferences
	if err := json.Unmarshal(merged, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}
