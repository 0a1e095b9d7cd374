// Package connectivity tracks network reachability and quality for the
// sync engine. It consumes the platform's network-state signal, refines
// quality with periodic active probes, and notifies subscribers on every
// transition.
package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evelynmak/stillpoint/core/internal/config"
	"github.com/evelynmak/stillpoint/core/internal/logging"
	"github.com/evelynmak/stillpoint/core/internal/models"
	"github.com/evelynmak/stillpoint/core/internal/store"
	"github.com/evelynmak/stillpoint/core/internal/uuid"
)

// Quality is a coarse classification of network usability.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityPoor      Quality = "poor"
	QualityOffline   Quality = "offline"
)

// Signal is one platform network-state event.
type Signal struct {
	Connected         bool
	Transport         string // wifi, ethernet, 5g, 4g, 3g, 2g, unknown
	InternetReachable bool
}

// NetworkSignal is the platform connectivity source. Subscribe delivers
// events until the returned cancel function is called.
type NetworkSignal interface {
	Current(ctx context.Context) (Signal, error)
	Subscribe(fn func(Signal)) (cancel func())
}

// State is the observer's current view of the network.
type State struct {
	Online         bool    `json:"online"`
	Quality        Quality `json:"quality"`
	Transport      string  `json:"transport,omitempty"`
	Since          int64   `json:"since"`                     // unix time of last transition
	OfflineSeconds int64   `json:"offline_seconds,omitempty"` // length of last completed offline period
}

// Listener receives the current state immediately on registration and then
// on every state change.
type Listener func(State)

// Observer maintains the connectivity state machine.
type Observer struct {
	cfg    config.ConnectivityConfig
	store  *store.Store
	signal NetworkSignal
	probe  Prober

	mu           sync.RWMutex
	state        State
	offlineStart time.Time
	listeners    map[string]Listener
	onOnline     func()

	running     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
	unsubscribe func()
}

// New creates an Observer. The initial state is offline until the first
// platform signal arrives.
func New(cfg config.ConnectivityConfig, st *store.Store, signal NetworkSignal, probe Prober) *Observer {
	return &Observer{
		cfg:    cfg,
		store:  st,
		signal: signal,
		probe:  probe,
		state: State{
			Online:  false,
			Quality: QualityOffline,
			Since:   time.Now().Unix(),
		},
		listeners: make(map[string]Listener),
	}
}

// SetOnlineTrigger registers the callback fired once per offline-to-online
// transition. The mutation queue processor wires its drain here.
func (o *Observer) SetOnlineTrigger(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onOnline = fn
}

// Start subscribes to the platform signal, applies the current network
// state, and begins the periodic quality probe loop.
func (o *Observer) Start(ctx context.Context) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}
	o.running = true
	o.stopCh = make(chan struct{})
	o.mu.Unlock()

	if current, err := o.signal.Current(ctx); err == nil {
		o.HandleSignal(current)
	} else {
		logging.Warn("Failed to read initial network state",
			map[string]interface{}{"error": err.Error()})
	}

	o.unsubscribe = o.signal.Subscribe(o.HandleSignal)

	o.wg.Add(1)
	go o.probeLoop(ctx)

	logging.Info("Connectivity observer started", map[string]interface{}{
		"probe_interval": o.cfg.ProbeInterval.String(),
	})
}

// Stop halts the probe loop and detaches from the platform signal.
func (o *Observer) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	close(o.stopCh)
	o.mu.Unlock()

	if o.unsubscribe != nil {
		o.unsubscribe()
	}
	o.wg.Wait()
}

// HandleSignal applies one platform network-state event to the state
// machine. Exported so the platform bridge can push events directly.
func (o *Observer) HandleSignal(sig Signal) {
	online := sig.Connected && sig.InternetReachable
	now := time.Now()

	o.mu.Lock()

	switch {
	case online && !o.state.Online:
		// offline -> online
		var offlineSeconds int64
		if !o.offlineStart.IsZero() {
			offlineSeconds = int64(now.Sub(o.offlineStart).Seconds())
			o.offlineStart = time.Time{}
		}
		o.state = State{
			Online:         true,
			Quality:        qualityFromTransport(sig.Transport),
			Transport:      sig.Transport,
			Since:          now.Unix(),
			OfflineSeconds: offlineSeconds,
		}
		trigger := o.onOnline
		state := o.state
		o.mu.Unlock()

		o.persistTransition(state, now.Unix(), offlineSeconds)
		o.notify(state)
		if trigger != nil {
			// Fire-and-forget; the drain must not block signal handling
			go trigger()
		}

	case !online && o.state.Online:
		// online -> offline
		o.offlineStart = now
		o.state = State{
			Online:    false,
			Quality:   QualityOffline,
			Transport: sig.Transport,
			Since:     now.Unix(),
		}
		state := o.state
		o.mu.Unlock()

		o.persistTransition(state, now.Unix(), 0)
		o.notify(state)

	case online:
		// online -> online: re-evaluate quality from the transport heuristic
		quality := qualityFromTransport(sig.Transport)
		if quality == o.state.Quality && sig.Transport == o.state.Transport {
			o.mu.Unlock()
			return
		}
		o.state.Quality = quality
		o.state.Transport = sig.Transport
		state := o.state
		o.mu.Unlock()

		o.recordEvent(state, 0)
		o.notify(state)

	default:
		// still offline
		o.mu.Unlock()
	}
}

// AddListener registers a listener and invokes it once immediately with
// the current state. Returns the subscription id.
func (o *Observer) AddListener(fn Listener) string {
	o.mu.Lock()
	id := uuid.New()
	o.listeners[id] = fn
	state := o.state
	o.mu.Unlock()

	invokeListener(id, fn, state)
	return id
}

// RemoveListener drops the subscription with the given id.
func (o *Observer) RemoveListener(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.listeners, id)
}

// CurrentState returns the observer's current view of the network.
func (o *Observer) CurrentState() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// IsOnline reports current reachability.
func (o *Observer) IsOnline() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.Online
}

// IsGoodForSync reports whether a drain attempt is worthwhile: online and
// quality above poor.
func (o *Observer) IsGoodForSync() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.Online && o.state.Quality != QualityPoor
}

// StatusMessage returns a human-readable connectivity summary.
func (o *Observer) StatusMessage() string {
	o.mu.RLock()
	state := o.state
	offlineStart := o.offlineStart
	o.mu.RUnlock()

	if state.Online {
		return fmt.Sprintf("Online (%s connection)", state.Quality)
	}
	if offlineStart.IsZero() {
		return "Offline"
	}
	return fmt.Sprintf("Offline for %s", formatDuration(time.Since(offlineStart)))
}

// probeLoop refines quality with an active probe at a fixed interval.
func (o *Observer) probeLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.RunProbe(ctx)
		}
	}
}

// RunProbe issues one active quality probe and applies the result. Probes
// never change reachability: a failed probe classifies as poor, only the
// platform signal produces offline.
func (o *Observer) RunProbe(ctx context.Context) {
	if !o.IsOnline() {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, o.cfg.ProbeTimeout)
	defer cancel()

	rtt, err := o.probe.Probe(probeCtx)

	var quality Quality
	switch {
	case err != nil:
		quality = QualityPoor
		logging.Debug("Quality probe failed", map[string]interface{}{
			"error": err.Error(),
		})
	case rtt < o.cfg.FastThreshold:
		quality = QualityExcellent
	case rtt < o.cfg.GoodThreshold:
		quality = QualityGood
	default:
		quality = QualityPoor
	}

	o.mu.Lock()
	if !o.state.Online || o.state.Quality == quality {
		o.mu.Unlock()
		return
	}
	o.state.Quality = quality
	state := o.state
	o.mu.Unlock()

	logging.Debug("Quality reclassified by probe", map[string]interface{}{
		"quality": string(quality),
		"rtt_ms":  rtt.Milliseconds(),
	})
	o.recordEvent(state, 0)
	o.notify(state)
}

// persistTransition stores connection metadata and the event log entry for
// a reachability transition.
func (o *Observer) persistTransition(state State, at, offlineSeconds int64) {
	if err := o.store.SaveConnectionMeta(at, offlineSeconds); err != nil {
		logging.Error("Failed to persist connection metadata", err)
	}
	o.recordEvent(state, offlineSeconds)
}

// recordEvent appends a bounded event log entry for a state change.
func (o *Observer) recordEvent(state State, offlineSeconds int64) {
	reachability := "offline"
	if state.Online {
		reachability = "online"
	}
	o.store.AppendConnectivityEvent(&models.ConnectivityEvent{
		Timestamp:      time.Now().Unix(),
		Reachability:   reachability,
		Quality:        string(state.Quality),
		Transport:      state.Transport,
		OfflineSeconds: offlineSeconds,
	})
}

// notify invokes every listener with the new state, each inside its own
// fault boundary so one failing subscriber cannot block the rest.
func (o *Observer) notify(state State) {
	o.mu.RLock()
	listeners := make(map[string]Listener, len(o.listeners))
	for id, fn := range o.listeners {
		listeners[id] = fn
	}
	o.mu.RUnlock()

	for id, fn := range listeners {
		invokeListener(id, fn, state)
	}
}

// invokeListener runs one listener callback, absorbing panics.
func invokeListener(id string, fn Listener, state State) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Connectivity listener panicked",
				fmt.Errorf("%v", r),
				map[string]interface{}{"subscription_id": id})
		}
	}()
	fn(state)
}

// qualityFromTransport maps the platform transport type to a quality tier.
func qualityFromTransport(transport string) Quality {
	switch transport {
	case "wifi", "ethernet", "wired":
		return QualityExcellent
	case "5g", "4g", "lte":
		return QualityGood
	case "3g", "2g", "edge", "gprs":
		return QualityPoor
	default:
		return QualityGood
	}
}

// formatDuration renders a duration as minutes and seconds.
func formatDuration(d time.Duration) string {
	total := int64(d.Seconds())
	minutes := total / 60
	seconds := total % 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
