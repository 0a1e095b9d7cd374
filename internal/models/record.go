// Package models provides data model definitions for Stillpoint Core.
package models

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// EntityType identifies which domain collection a record belongs to.
type EntityType string

const (
	EntityMood        EntityType = "mood"
	EntitySession     EntityType = "session"
	EntityPreferences EntityType = "preferences"
)

// Valid reports whether the entity type is one of the known collections.
func (e EntityType) Valid() bool {
	switch e {
	case EntityMood, EntitySession, EntityPreferences:
		return true
	}
	return false
}

// Action identifies the kind of change a mutation carries.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether the action is one of the known kinds.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Priority controls drain ordering between mutation items.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Rank returns the sort rank of a priority. Higher ranks drain first.
// Unknown values rank as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}
