// Package telemetry provides no-op telemetry functions. Stillpoint
// transmits nothing off-device without explicit opt-in, so every
// function here does nothing and the opt-in state is hardwired off.
// A real implementation can be swapped in behind this API if a consent
// flow ever lands.
package telemetry

import (
	"context"
	"time"
)

// IsEnabled reports whether telemetry collection is active. Always false.
func IsEnabled() bool {
	return false
}

// TrackEvent records a product event. No-op.
func TrackEvent(name string, properties map[string]interface{}) {
}

// TrackError records an error occurrence. No-op.
func TrackError(err error, context map[string]interface{}) {
}

// RecordTiming records an operation duration. No-op.
func RecordTiming(name string, duration time.Duration) {
}

// RecordCount records a counter increment. No-op.
func RecordCount(name string, delta int) {
}

// Flush sends any buffered data. Nothing is buffered.
func Flush() error {
	return nil
}

// Shutdown releases telemetry resources. Nothing is held.
func Shutdown(ctx context.Context) error {
	return nil
}
