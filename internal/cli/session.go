package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"focusmru/internal/config"
	"focusmru/internal/database"
	"focusmru/internal/logging"
	"focusmru/internal/mru"
	"focusmru/internal/recorder"
	"focusmru/pkg/focus"
	"focusmru/pkg/host"
)

// session bundles the collaborators shared by watch and serve.
type session struct {
	cfg      *config.Config
	logger   *logging.Logger
	host     *host.Host
	tracker  *focus.Tracker
	db       *database.DB
	repo     *database.Repository
	recorder *recorder.Service
}

// newHost builds the platform adapters described by cfg.
func newHost(cfg *config.Config, logger *logging.Logger) (*host.Host, error) {
	return host.New(host.Options{
		DisplayServer:     cfg.Tracker.DisplayServer,
		PollInterval:      cfg.Tracker.PollInterval,
		EventBuffer:       cfg.Tracker.EventBuffer,
		ResolverCacheSize: cfg.Tracker.ResolverCacheSize,
		Logger:            logger.Logger,
	})
}

func openRepository(cfg *config.Config) (*database.DB, *database.Repository, error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, database.NewRepository(db), nil
}

// openSession connects the journal (when enabled) and builds a recorder on
// top of the session's host.
func openSession(cfg *config.Config, onChange func(recorder.Change)) (*session, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}

	h, err := newHost(cfg, logger)
	if err != nil {
		s.close()
		return nil, errors.Wrap(err, "failed to initialize focus source")
	}
	s.host = h
	logger.Info("focus source initialized", "display_server", h.DisplayServer)

	var journal recorder.Journal
	if cfg.Tracker.Journal {
		db, repo, err := openRepository(cfg)
		if err != nil {
			s.close()
			return nil, errors.Wrap(err, "failed to open journal")
		}
		s.db, s.repo = db, repo
		journal = repo
	}

	s.tracker = focus.New(h.Source, h.Resolver, h.Workspace, focus.WithLogger(logger.Logger))
	s.recorder = recorder.NewService(cfg, s.tracker, mru.New(), recorder.Options{
		Journal:       journal,
		Alive:         h.Alive,
		DisplayServer: h.DisplayServer,
		OnChange:      onChange,
		Logger:        logger.Logger,
	})
	return s, nil
}

// run records until SIGINT/SIGTERM, ctx is done or the recorder fails. The
// host's native loop runs on the calling goroutine, which must be the main
// goroutine on macOS.
func (s *session) run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		err := s.recorder.Start(ctx)
		cancel()
		errCh <- err
	}()

	if err := s.host.RunLoop(ctx); err != nil {
		s.logger.Warn("native event loop stopped", "error", err)
	}

	s.recorder.Stop()
	err := <-errCh
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *session) close() {
	if s.tracker != nil {
		_ = s.tracker.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("failed to close database", "error", err)
		}
	}
	_ = s.logger.Close()
}
