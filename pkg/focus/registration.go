package focus

import (
	"sync"

	"github.com/pkg/errors"
)

// State is the lifecycle state of a Registration.
type State int

const (
	Unregistered State = iota
	Registered
)

func (s State) String() string {
	if s == Registered {
		return "registered"
	}
	return "unregistered"
}

// Registration holds the observer callback pair and the subscription
// state. The source is subscribed exactly once per Unregistered ->
// Registered transition; re-registering only swaps the callbacks.
type Registration struct {
	// lifecycle serializes Register and Close against each other
	lifecycle sync.Mutex

	// mu guards the callback pair and state read on every delivered event
	mu          sync.RWMutex
	activation  ActivationFunc
	termination TerminationFunc
	state       State

	source EventSource
	sink   Sink
}

// NewRegistration creates an unregistered Registration bound to source.
// sink is what the source delivers to once subscribed.
func NewRegistration(source EventSource, sink Sink) *Registration {
	return &Registration{
		source: source,
		sink:   sink,
	}
}

// Register stores the callback pair. The first successful call subscribes
// to the source; later calls replace the pair without re-subscribing.
func (r *Registration) Register(onActivate ActivationFunc, onTerminate TerminationFunc) error {
	if onActivate == nil || onTerminate == nil {
		return ErrNilCallback
	}

	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.State() == Registered {
		r.swap(onActivate, onTerminate, Registered)
		return nil
	}

	if r.source == nil {
		return errors.Wrap(ErrSubscribe, "no event source configured")
	}

	// Callbacks are in place before Subscribe so that a source delivering
	// synchronously from inside Subscribe reaches them.
	r.swap(onActivate, onTerminate, Registered)

	if err := r.source.Subscribe(r.sink); err != nil {
		r.swap(nil, nil, Unregistered)
		return &subscribeError{cause: err}
	}
	return nil
}

// Close tears the subscription down and returns to Unregistered. Closing an
// unregistered Registration is a no-op.
func (r *Registration) Close() error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.State() == Unregistered {
		return nil
	}
	r.swap(nil, nil, Unregistered)

	if err := r.source.Close(); err != nil {
		return errors.Wrap(err, "failed to close event source")
	}
	return nil
}

// State returns the current lifecycle state.
func (r *Registration) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Registration) swap(onActivate ActivationFunc, onTerminate TerminationFunc, state State) {
	r.mu.Lock()
	r.activation = onActivate
	r.termination = onTerminate
	r.state = state
	r.mu.Unlock()
}

// subscribeError matches ErrSubscribe and keeps the source's error as its
// cause.
type subscribeError struct {
	cause error
}

func (e *subscribeError) Error() string {
	return ErrSubscribe.Error() + ": " + e.cause.Error()
}

func (e *subscribeError) Is(target error) bool { return target == ErrSubscribe }
func (e *subscribeError) Unwrap() error        { return e.cause }
func (e *subscribeError) Cause() error         { return e.cause }

// callbacks returns the current pair, both nil while unregistered.
func (r *Registration) callbacks() (ActivationFunc, TerminationFunc) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activation, r.termination
}
