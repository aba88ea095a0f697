package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"focusmru/internal/config"
	"focusmru/internal/daemon"
	"focusmru/internal/web"
)

var (
	servePort   int
	serveDaemon bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Record focus changes and serve the web API",
		Long: `Record focus changes into the journal and serve the MRU ordering,
the event history and activation reports over HTTP.

Endpoints:
  /api/mru             current MRU ordering
  /api/events          journaled events (?kind=, ?period=, ?limit=)
  /api/events/latest   most recent event (?kind=)
  /api/report          activation report (?period=day|week|month)
  /api/status          recorder status
  /health              liveness probe`,
		Example: `  # Foreground
  focusmru serve

  # Background, logging to ~/.config/focusmru/focusmru.log
  focusmru serve --daemon

  # Custom port
  focusmru serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "web server port (default from config)")
	serveCmd.Flags().BoolVar(&serveDaemon, "daemon", false, "run in the background")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		if err := cfg.SetWebPort(servePort); err != nil {
			return err
		}
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if running {
		return errors.Errorf("daemon is already running (PID: %d)", pid)
	}

	if serveDaemon && !daemon.IsChild() {
		return spawnServe(cmd, cfg)
	}

	if daemon.IsChild() && cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(config.ConfigDir(), "focusmru.log")
	}
	// The web API reads from the journal.
	cfg.Tracker.Journal = true

	s, err := openSession(cfg, nil)
	if err != nil {
		return err
	}
	defer s.close()

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer dm.RemovePID()

	server := web.NewServer(cfg, s.repo, s.recorder, 0, s.logger.Logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		if err := server.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
			cancel()
		}
	}()

	s.logger.Info("focusmru daemon started", "web", "http://"+server.GetAddress())
	s.logger.Debug(cfg.String())

	runErr := s.run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("error shutting down web server", "error", err)
	}

	s.logger.Info("focusmru daemon stopped")
	return runErr
}

func spawnServe(cmd *cobra.Command, cfg *config.Config) error {
	args := []string{"serve"}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	if logLevel != "" {
		args = append(args, "--log-level", logLevel)
	}
	if servePort > 0 {
		args = append(args, "--port", fmt.Sprint(servePort))
	}

	pid, err := daemon.Spawn(args)
	if err != nil {
		return err
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(config.ConfigDir(), "focusmru.log")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Daemon started successfully (PID: %d)\n", pid)
	fmt.Fprintf(out, "Web API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Fprintf(out, "Logs: %s\n", logFile)
	return nil
}
