// Package conflict provides conflict resolution for records edited both
// locally and remotely, using a "last write wins" strategy.
package conflict

import (
	"time"

	"github.com/evelynmak/stillpoint/core/internal/errors"
	"github.com/evelynmak/stillpoint/core/internal/logging"
	"github.com/evelynmak/stillpoint/core/internal/models"
)

// Strategy defines how conflicts are resolved.
type Strategy string

const (
	StrategyLastWriteWins Strategy = "last_write_wins"
)

// Outcome names the side whose data is kept.
type Outcome string

const (
	OutcomeLocalWins  Outcome = "local_wins"
	OutcomeRemoteWins Outcome = "remote_wins"
)

// Conflict represents a detected collision between a pending local change
// and an existing remote record with the same identifier.
type Conflict struct {
	ItemID          string
	EntityType      string
	LocalData       map[string]interface{}
	RemoteData      map[string]interface{}
	LocalTimestamp  int64
	RemoteTimestamp int64
}

// Resolution is the outcome of resolving one conflict.
type Resolution struct {
	Outcome Outcome
	Winning map[string]interface{}
	Log     *models.ConflictLog
}

// Resolver resolves conflicts during queue draining.
type Resolver struct {
	strategy Strategy
}

// NewResolver creates a Resolver with the specified strategy.
func NewResolver(strategy Strategy) *Resolver {
	return &Resolver{strategy: strategy}
}

// Resolve applies the configured strategy to one conflict.
func (r *Resolver) Resolve(c *Conflict) (*Resolution, error) {
	if c == nil || c.LocalData == nil || c.RemoteData == nil {
		return nil, errors.New(errors.ErrSyncConflict, "conflict is missing local or remote data")
	}
	if c.ItemID == "" {
		return nil, errors.New(errors.ErrSyncConflict, "conflict has no record identifier")
	}

	logging.Info("Resolving conflict", map[string]interface{}{
		"item_id":          c.ItemID,
		"entity_type":      c.EntityType,
		"local_timestamp":  c.LocalTimestamp,
		"remote_timestamp": c.RemoteTimestamp,
		"strategy":         string(r.strategy),
	})

	// Only last-write-wins is wired; unknown strategies fall back to it.
	return r.resolveLastWriteWins(c), nil
}

// resolveLastWriteWins keeps the side with the newer timestamp. The remote
// record wins ties: an equal timestamp means the create was already applied
// and the local copy should converge on the remote version.
func (r *Resolver) resolveLastWriteWins(c *Conflict) *Resolution {
	outcome := OutcomeRemoteWins
	winning := c.RemoteData
	if c.LocalTimestamp > c.RemoteTimestamp {
		outcome = OutcomeLocalWins
		winning = c.LocalData
	}

	return &Resolution{
		Outcome: outcome,
		Winning: winning,
		Log: &models.ConflictLog{
			ItemID:          c.ItemID,
			EntityType:      c.EntityType,
			LocalTimestamp:  c.LocalTimestamp,
			RemoteTimestamp: c.RemoteTimestamp,
			Resolution:      string(outcome),
			DetectedAt:      time.Now().Unix(),
		},
	}
}
