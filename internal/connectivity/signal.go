package connectivity

import "context"

// StaticSignal is a NetworkSignal for hosts without a platform
// connectivity feed. It reports a fixed initial state and never emits
// events on its own; embedders push real transitions through
// Observer.HandleSignal, and the reachability probe refines quality.
type StaticSignal struct {
	signal Signal
}

// NewStaticSignal creates a StaticSignal with the given initial state.
func NewStaticSignal(connected bool, transport string) *StaticSignal {
	return &StaticSignal{signal: Signal{
		Connected:         connected,
		Transport:         transport,
		InternetReachable: connected,
	}}
}

func (s *StaticSignal) Current(ctx context.Context) (Signal, error) {
	return s.signal, nil
}

func (s *StaticSignal) Subscribe(fn func(Signal)) (cancel func()) {
	return func() {}
}
