package builder

import "log/slog"

// Options toggles the optional passes. Disabling an event kind skips its
// correlation and every association that consumes it.
type Options struct {
	TimerEvents        bool
	CallbackEvents     bool
	PublishEvents      bool
	SubscriptionEvents bool

	// Verify checks the graph invariants after association and reports
	// violations as diagnostics.
	Verify bool

	// Logger receives pass progress and diagnostics. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// DefaultOptions enables every pass.
func DefaultOptions() Options {
	return Options{
		TimerEvents:        true,
		CallbackEvents:     true,
		PublishEvents:      true,
		SubscriptionEvents: true,
		Verify:             true,
	}
}

func (o Options) associateTimers() bool { return o.CallbackEvents && o.TimerEvents }

func (o Options) associateSubscriptionCallbacks() bool {
	return o.CallbackEvents && o.SubscriptionEvents
}

func (o Options) associatePublishSubscribe() bool {
	return o.PublishEvents && o.SubscriptionEvents
}

func (o Options) associateTimerPublishes() bool {
	return o.PublishEvents && o.CallbackEvents && o.TimerEvents
}

func (o Options) associateSubscriptionPublishes() bool {
	return o.PublishEvents && o.CallbackEvents && o.SubscriptionEvents
}
