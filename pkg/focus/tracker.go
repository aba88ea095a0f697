// Package focus tracks foreground application activations and terminations
// reported by a desktop shell and produces the initial KNOWN/GUESS
// snapshot used to seed a most-recently-used ordering.
//
// A Tracker owns all of its state; several independent trackers may exist
// in one process.
package focus

import "log/slog"

// Tracker combines observer registration, event dispatch and
// prepopulation for one event source.
type Tracker struct {
	reg          *Registration
	dispatcher   *Dispatcher
	prepopulator *Prepopulator
	logger       *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for debug traces and callback panics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates an unregistered Tracker. resolver supplies metadata that the
// source or workspace did not attach; it may be nil.
func New(source EventSource, resolver MetadataResolver, workspace Workspace, opts ...Option) *Tracker {
	t := &Tracker{logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}

	t.dispatcher = &Dispatcher{resolver: resolver, logger: t.logger}
	t.reg = NewRegistration(source, t.dispatcher)
	t.dispatcher.reg = t.reg
	t.prepopulator = NewPrepopulator(workspace, resolver, t.logger)
	return t
}

// Register stores the callback pair and starts forwarding future events.
// The event source is subscribed on the first call only; calling Register
// again replaces the pair. Past events are not replayed.
func (t *Tracker) Register(onActivate ActivationFunc, onTerminate TerminationFunc) error {
	if err := t.reg.Register(onActivate, onTerminate); err != nil {
		return err
	}
	t.logger.Debug("observer registered")
	return nil
}

// Prepopulate invokes cb once per running regular application. See
// Prepopulator.Prepopulate.
func (t *Tracker) Prepopulate(cb PrepopulationFunc) error {
	return t.prepopulator.Prepopulate(cb)
}

// State reports whether observers are registered.
func (t *Tracker) State() State {
	return t.reg.State()
}

// Close unsubscribes from the event source. It is safe to call more than
// once.
func (t *Tracker) Close() error {
	return t.reg.Close()
}

// Sink returns the dispatcher events are delivered to. Sources normally
// receive it through Subscribe; it is exposed for hosts that inject
// events directly.
func (t *Tracker) Sink() Sink {
	return t.dispatcher
}
