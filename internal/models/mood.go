// Package models provides data model definitions for Stillpoint Core.
package models

import "time"

// MoodEntry represents one logged mood check-in.
type MoodEntry struct {
	ID        UUID     `json:"id"`
	Mood      string   `json:"mood"`
	Intensity int      `json:"intensity"` // 1..5
	Note      string   `json:"note,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (m *MoodEntry) CreatedAtTime() time.Time {
	return time.Unix(m.CreatedAt, 0)
}

// ActivitySession represents one completed or abandoned guided activity
// (breathing, meditation, grounding exercise).
type ActivitySession struct {
	ID              UUID   `json:"id"`
	Activity        string `json:"activity"`
	DurationSeconds int    `json:"duration_seconds"`
	Completed       bool   `json:"completed"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (s *ActivitySession) CreatedAtTime() time.Time {
	return time.Unix(s.CreatedAt, 0)
}

// Preferences holds user-configurable settings that sync alongside entries.
type Preferences struct {
	RetentionDays    int    `json:"retention_days"`
	RemindersEnabled bool   `json:"reminders_enabled"`
	ReminderHour     int    `json:"reminder_hour"`
	Theme            string `json:"theme,omitempty"`
	UpdatedAt        int64  `json:"updated_at"`
}

// DefaultPreferences returns the preferences applied before the user has
// saved any.
func DefaultPreferences() *Preferences {
	return &Preferences{
		RetentionDays:    30,
		RemindersEnabled: true,
		ReminderHour:     9,
	}
}
