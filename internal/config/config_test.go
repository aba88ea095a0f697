package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"poll too fast", func(c *Config) { c.Tracker.PollInterval = time.Millisecond }, "less than minimum"},
		{"poll too slow", func(c *Config) { c.Tracker.PollInterval = time.Hour }, "greater than maximum"},
		{"no buffer", func(c *Config) { c.Tracker.EventBuffer = 0 }, "event buffer"},
		{"no cache", func(c *Config) { c.Tracker.ResolverCacheSize = 0 }, "resolver cache"},
		{"bad display server", func(c *Config) { c.Tracker.DisplayServer = "mir" }, "display server"},
		{"bad port", func(c *Config) { c.Web.Port = 70000 }, "web port"},
		{"empty host", func(c *Config) { c.Web.Host = "" }, "web host"},
		{"empty pid file", func(c *Config) { c.Daemon.PIDFile = "" }, "PID file"},
		{"bad history limit", func(c *Config) { c.Report.HistoryLimit = 0 }, "history limit"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSetWebPort(t *testing.T) {
	cfg := Default()
	if err := cfg.SetWebPort(8080); err != nil || cfg.Web.Port != 8080 {
		t.Errorf("SetWebPort(8080) = %v, port %d", err, cfg.Web.Port)
	}
	if err := cfg.SetWebPort(0); err == nil {
		t.Error("SetWebPort(0) error = nil")
	}
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	def := Default()
	if cfg.Tracker.PollInterval != def.Tracker.PollInterval || cfg.Web.Host != def.Web.Host {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
	if cfg.Tracker.MinPollInterval != def.Tracker.MinPollInterval {
		t.Errorf("MinPollInterval = %v, want %v", cfg.Tracker.MinPollInterval, def.Tracker.MinPollInterval)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FOCUSMRU_DB_PATH", "/tmp/env.db")
	t.Setenv("FOCUSMRU_POLL_INTERVAL", "250ms")
	t.Setenv("FOCUSMRU_DISPLAY_SERVER", "proc")
	t.Setenv("FOCUSMRU_WEB_PORT", "9123")
	t.Setenv("FOCUSMRU_TRACKER_EVENT_BUFFER", "8")
	t.Setenv("FOCUSMRU_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Tracker.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.Tracker.PollInterval)
	}
	if cfg.Tracker.DisplayServer != "proc" {
		t.Errorf("DisplayServer = %q", cfg.Tracker.DisplayServer)
	}
	if cfg.Web.Port != 9123 {
		t.Errorf("Web.Port = %d", cfg.Web.Port)
	}
	if cfg.Tracker.EventBuffer != 8 {
		t.Errorf("EventBuffer = %d", cfg.Tracker.EventBuffer)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "focusmru", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	content := `
tracker:
  poll_interval: 2s
  display_server: x11
  journal: false
report:
  history_limit: 5
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// Environment wins over the file.
	t.Setenv("FOCUSMRU_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Tracker.PollInterval != 2*time.Second || cfg.Tracker.DisplayServer != "x11" || cfg.Tracker.Journal {
		t.Errorf("tracker = %+v", cfg.Tracker)
	}
	if cfg.Report.HistoryLimit != 5 {
		t.Errorf("HistoryLimit = %d, want 5", cfg.Report.HistoryLimit)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() error = nil for missing explicit file")
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FOCUSMRU_POLL_INTERVAL", "1h")

	if _, err := Load(""); err == nil {
		t.Error("Load() error = nil for out of range poll interval")
	}
	if cfg := New(); cfg.Tracker.PollInterval != time.Second {
		t.Errorf("New() fell back to %v, want default", cfg.Tracker.PollInterval)
	}
}

func TestString(t *testing.T) {
	s := Default().String()
	for _, want := range []string{"Poll Interval: 1s", "Display Server: auto", "Level: info"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q", want)
		}
	}
}
