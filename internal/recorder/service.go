// Package recorder feeds the events of a focus.Tracker into an MRU stack
// and the event journal.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"focusmru/internal/config"
	"focusmru/internal/models"
	"focusmru/internal/mru"
	"focusmru/pkg/focus"
)

// Journal stores events and errors. *database.Repository implements it.
type Journal interface {
	Create(event *models.FocusEvent) error
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Change describes one update of the MRU stack.
type Change struct {
	Kind  string
	Entry mru.Entry
	Stack []mru.Entry
}

// Options configures a Service.
type Options struct {
	// Journal is optional; events are not stored when nil
	Journal Journal

	// Alive enables periodic pruning of exited processes
	Alive func(pid int32) bool

	// DisplayServer is recorded with every journaled event
	DisplayServer string

	// OnChange is called on the delivery goroutine after every change
	OnChange func(Change)

	Logger *slog.Logger
}

type Service struct {
	config  *config.Config
	tracker *focus.Tracker
	stack   *mru.Stack
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	stopOnce sync.Once
	started  time.Time
	seeded   int
	prepped  bool
}

func NewService(cfg *config.Config, tracker *focus.Tracker, stack *mru.Stack, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config:   cfg,
		tracker:  tracker,
		stack:    stack,
		opts:     opts,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start registers with the tracker, seeds the stack from the running
// applications and then prunes it every poll interval until ctx is done or
// Stop is called. The tracker is closed on return.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("recorder is already running")
	}
	s.running = true
	s.started = time.Now()
	s.mu.Unlock()

	defer func() {
		if err := s.tracker.Close(); err != nil {
			s.logger.Warn("failed to close tracker", "error", err)
		}
		s.mu.Lock()
		s.running = false
		s.prepped = false
		s.mu.Unlock()
	}()

	if err := s.tracker.Register(s.handleActivation, s.handleTermination); err != nil {
		s.storeError("register", err)
		return errors.Wrap(err, "failed to register with tracker")
	}

	if n, err := s.Prepopulate(); err != nil {
		s.storeError("prepopulate", err)
	} else {
		s.logger.Info("prepopulated MRU stack", "applications", n)
	}
	s.mu.Lock()
	s.prepped = true
	s.mu.Unlock()

	s.logger.Info("recording focus changes", "display_server", s.opts.DisplayServer, "prune_interval", s.config.Tracker.PollInterval)

	var prune <-chan time.Time
	if s.opts.Alive != nil {
		ticker := time.NewTicker(s.config.Tracker.PollInterval)
		defer ticker.Stop()
		prune = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("recorder stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			s.logger.Info("recorder stopped")
			return nil

		case <-prune:
			if removed := s.stack.Prune(s.opts.Alive); removed > 0 {
				s.logger.Debug("[MRU] pruned exited applications", "removed", removed)
			}
		}
	}
}

// Prepopulate seeds the stack from the tracker's workspace snapshot and
// returns the number of entries received.
func (s *Service) Prepopulate() (int, error) {
	n := 0
	err := s.tracker.Prepopulate(func(entry focus.PrepopulationEntry) {
		n++
		s.handleSeed(entry)
	})
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.seeded += n
	s.mu.Unlock()
	return n, nil
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stack returns the MRU stack fed by the service.
func (s *Service) Stack() *mru.Stack {
	return s.stack
}

// MRU returns a copy of the stack, most recent first.
func (s *Service) MRU() []mru.Entry {
	return s.stack.Snapshot()
}

// Status is a point-in-time summary of the service.
type Status struct {
	Running       bool      `json:"running"`
	DisplayServer string    `json:"display_server"`
	Since         time.Time `json:"since"`
	Applications  int       `json:"applications"`
	Seeded        int       `json:"seeded"`
	Prepopulated  bool      `json:"prepopulated"`
	TrackerState  string    `json:"tracker_state"`
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:       s.running,
		DisplayServer: s.opts.DisplayServer,
		Since:         s.started,
		Applications:  s.stack.Len(),
		Seeded:        s.seeded,
		Prepopulated:  s.prepped,
		TrackerState:  s.tracker.State().String(),
	}
}

func (s *Service) handleActivation(rec focus.ActivationRecord) {
	s.stack.Activate(rec)
	s.logger.Debug("[MRU] activated", "pid", rec.PID, "bundle_id", rec.BundleID, "name", rec.Name)

	s.record(&models.FocusEvent{
		Kind:       models.KindActivation,
		PID:        rec.PID,
		BundleID:   rec.BundleID,
		AppName:    rec.Name,
		Confidence: focus.Known.String(),
	})
	s.notify(models.KindActivation, mru.Entry{ActivationRecord: rec, Confidence: focus.Known})
}

func (s *Service) handleTermination(rec focus.TerminationRecord) {
	removed := s.stack.Terminate(rec.PID)
	s.logger.Debug("[MRU] terminated", "pid", rec.PID, "removed", removed)

	s.record(&models.FocusEvent{Kind: models.KindTermination, PID: rec.PID})
	s.notify(models.KindTermination, mru.Entry{ActivationRecord: focus.ActivationRecord{PID: rec.PID}})
}

func (s *Service) handleSeed(entry focus.PrepopulationEntry) {
	changed := s.stack.Seed(entry)
	s.logger.Debug("[Prepopulation] "+entry.Confidence.String()+":",
		"pid", entry.PID, "bundle_id", entry.BundleID, "name", entry.Name, "changed", changed)

	s.record(&models.FocusEvent{
		Kind:       models.KindPrepopulation,
		PID:        entry.PID,
		BundleID:   entry.BundleID,
		AppName:    entry.Name,
		Confidence: entry.Confidence.String(),
	})
	if changed {
		s.notify(models.KindPrepopulation, mru.Entry{ActivationRecord: entry.ActivationRecord, Confidence: entry.Confidence})
	}
}

func (s *Service) record(event *models.FocusEvent) {
	if s.opts.Journal == nil || !s.config.Tracker.Journal {
		return
	}
	event.Timestamp = time.Now()
	event.DisplayServer = s.opts.DisplayServer
	if err := s.opts.Journal.Create(event); err != nil {
		s.storeError("journal", err)
	}
}

func (s *Service) notify(kind string, entry mru.Entry) {
	if s.opts.OnChange == nil {
		return
	}
	s.opts.OnChange(Change{Kind: kind, Entry: entry, Stack: s.stack.Snapshot()})
}

func (s *Service) storeError(component string, err error) {
	if s.opts.Journal == nil {
		s.logger.Error("recorder error", "component", component, "error", err)
		return
	}

	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		Component: component,
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.opts.Journal.CreateErrorLog(errorLog); dbErr != nil {
		s.logger.Error("failed to store error in database", "error", dbErr, "original_error", err)
	} else {
		s.logger.Warn("error logged to database", "component", component, "error", err)
	}
}
