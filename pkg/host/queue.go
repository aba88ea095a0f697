package host

import (
	"sync"

	"github.com/pkg/errors"

	"focusmru/pkg/focus"
)

// DefaultEventBuffer is the depth of the delivery queue
const DefaultEventBuffer = 64

type event struct {
	activation  *focus.ActivationSignal
	termination *focus.TerminationRecord
}

// Queue merges several event sources into one serial delivery goroutine.
// Adapters may produce events on any goroutine; the sink only ever sees
// them one at a time, in the order they were enqueued.
type Queue struct {
	sources    []focus.EventSource
	onActivate func(pid int32)

	mu      sync.Mutex
	events  chan event
	quit    chan struct{}
	done    chan struct{}
	started bool
	closed  bool
}

var _ focus.EventSource = (*Queue)(nil)

// NewQueue creates a Queue over sources with a buffer of size events.
// onActivate, when set, runs on the delivery goroutine before each
// activation is forwarded.
func NewQueue(size int, onActivate func(pid int32), sources ...focus.EventSource) *Queue {
	if size <= 0 {
		size = DefaultEventBuffer
	}
	return &Queue{
		sources:    sources,
		onActivate: onActivate,
		events:     make(chan event, size),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Subscribe starts the delivery goroutine and subscribes every source. If
// any source fails, the ones already subscribed are released again and the
// queue can be subscribed once more.
func (q *Queue) Subscribe(sink focus.Sink) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return focus.ErrClosed
	}
	if q.started {
		return errors.New("queue already subscribed")
	}

	in := queueSink{q}
	for i, src := range q.sources {
		if err := src.Subscribe(in); err != nil {
			for _, prev := range q.sources[:i] {
				release(prev)
			}
			return err
		}
	}

	q.started = true
	go q.deliver(sink)
	return nil
}

// Close stops every source, then the delivery goroutine. Events still
// queued are dropped.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	started := q.started
	q.mu.Unlock()

	var firstErr error
	if started {
		for _, src := range q.sources {
			if err := src.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	close(q.quit)
	if started {
		<-q.done
	}
	return firstErr
}

// release stops a source that is not part of a running subscription. Sources
// that cannot unsubscribe are closed.
func release(src focus.EventSource) {
	if u, ok := src.(focus.Unsubscriber); ok {
		_ = u.Unsubscribe()
		return
	}
	_ = src.Close()
}

func (q *Queue) enqueue(ev event) {
	select {
	case q.events <- ev:
	case <-q.quit:
	}
}

func (q *Queue) deliver(sink focus.Sink) {
	defer close(q.done)

	for {
		select {
		case <-q.quit:
			return
		case ev := <-q.events:
			switch {
			case ev.activation != nil:
				if q.onActivate != nil {
					q.onActivate(ev.activation.PID)
				}
				sink.Activated(*ev.activation)
			case ev.termination != nil:
				sink.Terminated(*ev.termination)
			}
		}
	}
}

// queueSink is handed to the wrapped sources.
type queueSink struct {
	q *Queue
}

func (s queueSink) Activated(sig focus.ActivationSignal) {
	s.q.enqueue(event{activation: &sig})
}

func (s queueSink) Terminated(rec focus.TerminationRecord) {
	s.q.enqueue(event{termination: &rec})
}
