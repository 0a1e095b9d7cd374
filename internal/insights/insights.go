// Package insights computes local summaries over stored wellness data.
// Everything here runs fully offline against the durable store.
package insights

import (
	"sort"
	"time"

	"github.com/evelynmak/stillpoint/core/internal/store"
)

// Service derives summaries from the durable store.
type Service struct {
	store *store.Store
}

// NewService creates an insights Service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// MoodSummary aggregates mood entries over a trailing window.
type MoodSummary struct {
	Days             int            `json:"days"`
	TotalEntries     int            `json:"total_entries"`
	AverageIntensity float64        `json:"average_intensity"`
	MoodCounts       map[string]int `json:"mood_counts"`
	DominantMood     string         `json:"dominant_mood"`
}

// TagCount is one tag with its occurrence count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ActivityStats aggregates activity sessions over a trailing window.
type ActivityStats struct {
	Days             int     `json:"days"`
	TotalSessions    int     `json:"total_sessions"`
	CompletedCount   int     `json:"completed_count"`
	CompletionRate   float64 `json:"completion_rate"`
	TotalDurationSec int     `json:"total_duration_seconds"`
	StreakDays       int     `json:"streak_days"`
}

// Moods summarizes mood entries recorded in the last `days` days.
func (s *Service) Moods(days int) *MoodSummary {
	cutoff := time.Now().AddDate(0, 0, -days).Unix()

	summary := &MoodSummary{
		Days:       days,
		MoodCounts: make(map[string]int),
	}

	var intensitySum int
	for _, entry := range s.store.ListMoodEntries(0) {
		if entry.CreatedAt < cutoff {
			continue
		}
		summary.TotalEntries++
		summary.MoodCounts[entry.Mood]++
		intensitySum += entry.Intensity
	}

	if summary.TotalEntries > 0 {
		summary.AverageIntensity = float64(intensitySum) / float64(summary.TotalEntries)
	}
	summary.DominantMood = dominantKey(summary.MoodCounts)
	return summary
}

// TopTags returns the most frequent mood-entry tags, highest count first.
// Ties break alphabetically so the result is deterministic.
func (s *Service) TopTags(limit int) []TagCount {
	freq := make(map[string]int)
	for _, entry := range s.store.ListMoodEntries(0) {
		for _, tag := range entry.Tags {
			freq[tag]++
		}
	}

	counts := make([]TagCount, 0, len(freq))
	for tag, count := range freq {
		counts = append(counts, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Tag < counts[j].Tag
	})

	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

// Activity summarizes sessions recorded in the last `days` days.
func (s *Service) Activity(days int) *ActivityStats {
	cutoff := time.Now().AddDate(0, 0, -days).Unix()

	stats := &ActivityStats{Days: days}
	activeDays := make(map[string]bool)

	for _, session := range s.store.ListSessions(0) {
		if session.CreatedAt < cutoff {
			continue
		}
		stats.TotalSessions++
		stats.TotalDurationSec += session.DurationSeconds
		if session.Completed {
			stats.CompletedCount++
		}
		day := time.Unix(session.CreatedAt, 0).Format("2006-01-02")
		activeDays[day] = true
	}

	if stats.TotalSessions > 0 {
		stats.CompletionRate = float64(stats.CompletedCount) / float64(stats.TotalSessions)
	}
	stats.StreakDays = currentStreak(activeDays, time.Now())
	return stats
}

// dominantKey returns the key with the highest count; ties break
// alphabetically.
func dominantKey(counts map[string]int) string {
	var best string
	bestCount := 0
	for key, count := range counts {
		if count > bestCount || (count == bestCount && (best == "" || key < best)) {
			best = key
			bestCount = count
		}
	}
	return best
}

// currentStreak counts consecutive active days ending today or yesterday.
// A streak is not broken until a full day passes with no session.
func currentStreak(activeDays map[string]bool, now time.Time) int {
	day := now
	if !activeDays[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
		if !activeDays[day.Format("2006-01-02")] {
			return 0
		}
	}

	streak := 0
	for activeDays[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
