// Package scheduler provides background scheduling for queue drains and
// data retention sweeps.
package scheduler

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/evelynmak/stillpoint/core/internal/errors"
	"github.com/evelynmak/stillpoint/core/internal/logging"
	syncpkg "github.com/evelynmak/stillpoint/core/internal/sync"
)

// Drainer triggers a pass over the mutation queue.
type Drainer interface {
	Drain(ctx context.Context) (*syncpkg.DrainResult, error)
}

// Retainer exposes the retention policy and the prune operation.
type Retainer interface {
	RetentionDays() int
	PruneOlderThan(cutoff time.Time) (int, error)
}

// Scheduler runs the periodic background work: draining the mutation
// queue while online and pruning expired wellness records past the
// configured retention window.
type Scheduler struct {
	drainer       Drainer
	retainer      Retainer
	drainInterval time.Duration
	sweepInterval time.Duration

	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	isOnline  bool
	lastDrain time.Time
	lastSweep time.Time
}

// Config holds scheduler configuration.
type Config struct {
	DrainInterval time.Duration // how often to drain when online
	SweepInterval time.Duration // how often to apply the retention policy
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		DrainInterval: 15 * time.Minute,
		SweepInterval: 24 * time.Hour,
	}
}

// New creates a Scheduler. A nil config uses the defaults.
func New(drainer Drainer, retainer Retainer, config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}

	return &Scheduler{
		drainer:       drainer,
		retainer:      retainer,
		drainInterval: config.DrainInterval,
		sweepInterval: config.SweepInterval,
		stopCh:        make(chan struct{}),
		isOnline:      true, // assume online until the observer reports
	}
}

// Start launches the background loops. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(2)
	go s.drainLoop(ctx)
	go s.sweepLoop(ctx)

	logging.Info("Background scheduler started", map[string]interface{}{
		"drain_interval": s.drainInterval.String(),
		"sweep_interval": s.sweepInterval.String(),
	})
}

// Stop shuts the background loops down gracefully.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	logging.Info("Background scheduler stopped")
}

// SetOnlineStatus updates the connectivity flag. Drains are only
// attempted while online; the retention sweep runs regardless.
func (s *Scheduler) SetOnlineStatus(isOnline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isOnline != isOnline {
		logging.Info("Scheduler online status changed", map[string]interface{}{
			"is_online": isOnline,
		})
	}
	s.isOnline = isOnline
}

// IsOnline reports the scheduler's current connectivity flag.
func (s *Scheduler) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isOnline
}

// LastDrain returns when the last successful periodic drain finished.
func (s *Scheduler) LastDrain() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDrain
}

func (s *Scheduler) drainLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.IsOnline() {
				continue
			}
			s.runDrain(ctx)
		}
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

// runDrain executes one periodic drain with a bounded deadline. The
// processor's own single-flight guard handles overlap with drains
// triggered by connectivity transitions.
func (s *Scheduler) runDrain(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result, err := s.drainer.Drain(drainCtx)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSyncInProgress) || apperrors.Is(err, apperrors.ErrSyncOffline) {
			logging.Debug("Periodic drain skipped", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		logging.ErrorWithCode("Periodic drain failed", string(apperrors.ErrSyncFailed), err,
			map[string]interface{}{"interval_minutes": s.drainInterval.Minutes()})
		return
	}

	s.mu.Lock()
	s.lastDrain = time.Now()
	s.mu.Unlock()

	logging.Info("Periodic drain completed", map[string]interface{}{
		"synced": result.Synced,
		"failed": result.Failed,
	})
}

// runSweep prunes wellness records older than the retention window.
func (s *Scheduler) runSweep() {
	days := s.retainer.RetentionDays()
	if days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	pruned, err := s.retainer.PruneOlderThan(cutoff)
	if err != nil {
		logging.Error("Retention sweep failed", err, map[string]interface{}{
			"retention_days": days,
		})
		return
	}

	s.mu.Lock()
	s.lastSweep = time.Now()
	s.mu.Unlock()

	if pruned > 0 {
		logging.Info("Retention sweep completed", map[string]interface{}{
			"pruned":         pruned,
			"retention_days": days,
		})
	}
}
