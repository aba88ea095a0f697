package focus

import (
	"log/slog"
	"runtime/debug"
)

// Dispatcher turns raw source events into callback invocations. It reads
// the callback pair from its Registration under a read lock and invokes it
// outside the lock, on the goroutine the event arrived on.
type Dispatcher struct {
	reg      *Registration
	resolver MetadataResolver
	logger   *slog.Logger
}

var _ Sink = (*Dispatcher)(nil)

// Activated implements Sink.
func (d *Dispatcher) Activated(sig ActivationSignal) {
	onActivate, _ := d.reg.callbacks()
	if onActivate == nil {
		d.logger.Debug("dropping activation while unregistered", "pid", sig.PID)
		return
	}

	rec := ActivationRecord{PID: sig.PID}
	if sig.HasMetadata {
		rec.BundleID, rec.Name = sig.BundleID, sig.Name
	} else {
		rec.BundleID, rec.Name = d.resolve(sig.PID)
	}

	d.logger.Debug("app activated", "pid", rec.PID, "bundle_id", rec.BundleID, "name", rec.Name)
	d.safeCall("activation", func() { onActivate(rec) })
}

// Terminated implements Sink.
func (d *Dispatcher) Terminated(rec TerminationRecord) {
	if f, ok := d.resolver.(Forgetter); ok {
		f.Forget(rec.PID)
	}

	_, onTerminate := d.reg.callbacks()
	if onTerminate == nil {
		d.logger.Debug("dropping termination while unregistered", "pid", rec.PID)
		return
	}

	d.logger.Debug("app terminated", "pid", rec.PID)
	d.safeCall("termination", func() { onTerminate(rec) })
}

// resolve returns empty strings when metadata is unavailable; the event is
// still delivered.
func (d *Dispatcher) resolve(pid int32) (string, string) {
	if d.resolver == nil {
		return "", ""
	}
	bundleID, name, err := d.resolver.Resolve(pid)
	if err != nil {
		d.logger.Debug("metadata unresolved", "pid", pid, "error", err)
		return "", ""
	}
	return bundleID, name
}

// safeCall recovers callback panics so a misbehaving observer cannot kill
// the delivery goroutine.
func (d *Dispatcher) safeCall(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("callback panicked", "kind", kind, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
