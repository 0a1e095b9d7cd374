// Package models provides data model definitions for Stillpoint Core.
package models

// ConnectivityEvent records one reachability or quality transition for the
// bounded connectivity event log.
type ConnectivityEvent struct {
	Timestamp      int64  `json:"timestamp"`
	Reachability   string `json:"reachability"` // offline, online
	Quality        string `json:"quality"`      // excellent, good, poor, offline
	Transport      string `json:"transport,omitempty"`
	OfflineSeconds int64  `json:"offline_seconds,omitempty"`
}

// ConflictLog records one last-write-wins resolution for user awareness.
type ConflictLog struct {
	ItemID          string `json:"item_id"`
	EntityType      string `json:"entity_type"`
	LocalTimestamp  int64  `json:"local_timestamp"`
	RemoteTimestamp int64  `json:"remote_timestamp"`
	Resolution      string `json:"resolution"` // local_wins, remote_wins
	DetectedAt      int64  `json:"detected_at"`
}
