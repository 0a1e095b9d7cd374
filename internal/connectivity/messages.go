// Package connectivity tracks network reachability and quality.
package connectivity

// offlineFallbacks holds the per-feature copy shown while a feature runs
// in degraded offline mode.
var offlineFallbacks = map[string]string{
	"mood":      "You're offline. Mood check-ins are saved on your device and will sync automatically when you reconnect.",
	"session":   "You're offline. Completed activities are saved on your device and will sync automatically when you reconnect.",
	"insights":  "Insights need a connection to refresh. Showing your most recent saved view.",
	"export":    "Data export needs a connection. Try again once you're back online.",
	"sync":      "Changes are saved locally and will sync when you're back online.",
	"community": "Community content isn't available offline.",
}

// defaultFallback is used for features without dedicated copy.
const defaultFallback = "You're offline. This feature will catch up automatically once you reconnect."

// OfflineFallbackMessage returns canned per-feature copy for degraded UX.
func (o *Observer) OfflineFallbackMessage(feature string) string {
	if msg, ok := offlineFallbacks[feature]; ok {
		return msg
	}
	return defaultFallback
}
