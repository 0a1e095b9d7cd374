// Package sync implements the mutation queue processor that reconciles
// locally-made changes against the remote backend.
package sync

import "context"

// RemoteStore is the backend counterpart of the local record store. Records
// are keyed by entity type and record identifier; the implementation owns
// identity scoping.
type RemoteStore interface {
	// Create inserts a record remotely.
	Create(ctx context.Context, entityType, id string, data map[string]interface{}) error

	// Update overwrites a record remotely.
	Update(ctx context.Context, entityType, id string, data map[string]interface{}) error

	// Delete removes a record remotely. Deleting an absent record is not
	// an error.
	Delete(ctx context.Context, entityType, id string) error

	// Fetch reads a record for conflict detection. The boolean reports
	// whether the record exists remotely.
	Fetch(ctx context.Context, entityType, id string) (map[string]interface{}, bool, error)
}

// Connectivity is the slice of the network observer the processor needs.
type Connectivity interface {
	IsOnline() bool
}
