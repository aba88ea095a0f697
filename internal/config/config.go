package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Tracker configuration
	Tracker TrackerConfig `mapstructure:"tracker"`

	// Daemon configuration
	Daemon DaemonConfig `mapstructure:"daemon"`

	// Report configuration
	Report ReportConfig `mapstructure:"report"`

	// Web server configuration
	Web WebConfig `mapstructure:"web"`

	// Log configuration
	Log LogConfig `mapstructure:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // Path to SQLite database file
}

// TrackerConfig holds tracking behavior configuration
type TrackerConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`       // Termination watcher and prune period
	MinPollInterval   time.Duration `mapstructure:"-"`                   // Minimum allowed poll interval
	MaxPollInterval   time.Duration `mapstructure:"-"`                   // Maximum allowed poll interval
	EventBuffer       int           `mapstructure:"event_buffer"`        // Depth of the delivery queue
	ResolverCacheSize int           `mapstructure:"resolver_cache_size"` // Cached pid metadata entries
	DisplayServer     string        `mapstructure:"display_server"`      // auto, x11, wayland, darwin or proc
	Journal           bool          `mapstructure:"journal"`             // Store events in the database
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `mapstructure:"pid_file"` // Path to PID file for daemon management
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone     string `mapstructure:"timezone"`
	HistoryLimit int    `mapstructure:"history_limit"` // Events shown by `history`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string `mapstructure:"host"` // Host to bind web server to
	Port int    `mapstructure:"port"` // Port for web server
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn or error
	Format string `mapstructure:"format"` // text or json
	File   string `mapstructure:"file"`   // Empty logs to stderr
}

var (
	displayServers = []string{"auto", "x11", "wayland", "darwin", "proc"}
	logLevels      = []string{"debug", "info", "warn", "error"}
	logFormats     = []string{"text", "json"}
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/focusmru/focusmru.db
		},
		Tracker: TrackerConfig{
			PollInterval:      time.Second,
			MinPollInterval:   100 * time.Millisecond,
			MaxPollInterval:   time.Minute,
			EventBuffer:       64,
			ResolverCacheSize: 256,
			DisplayServer:     "auto",
			Journal:           true,
		},
		Daemon: DaemonConfig{
			PIDFile: filepath.Join(os.TempDir(), fmt.Sprintf("focusmru-%d.pid", os.Getuid())),
		},
		Report: ReportConfig{
			TimeZone:     "Local",
			HistoryLimit: 20,
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid(), // Default port based on user ID
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate tracker settings
	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return errors.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return errors.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Tracker.EventBuffer < 1 {
		return errors.Errorf("event buffer must be positive, got %d", c.Tracker.EventBuffer)
	}

	if c.Tracker.ResolverCacheSize < 1 {
		return errors.Errorf("resolver cache size must be positive, got %d", c.Tracker.ResolverCacheSize)
	}

	if !oneOf(c.Tracker.DisplayServer, displayServers) {
		return errors.Errorf("display server must be one of %v, got %q", displayServers, c.Tracker.DisplayServer)
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return errors.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return errors.New("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return errors.New("PID file path cannot be empty")
	}

	if c.Report.HistoryLimit < 1 {
		return errors.Errorf("history limit must be positive, got %d", c.Report.HistoryLimit)
	}

	if !oneOf(c.Log.Level, logLevels) {
		return errors.Errorf("log level must be one of %v, got %q", logLevels, c.Log.Level)
	}

	if !oneOf(c.Log.Format, logFormats) {
		return errors.Errorf("log format must be one of %v, got %q", logFormats, c.Log.Format)
	}

	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return errors.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return errors.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "focusmru")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".focusmru"
	}
	return filepath.Join(home, ".config", "focusmru")
}

// ConfigFile returns the path to the default config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Tracker:
    Poll Interval: %v
    Event Buffer: %d
    Resolver Cache: %d
    Display Server: %s
    Journal: %v
  Daemon:
    PID File: %s
  Report:
    Time Zone: %s
    History Limit: %d
  Web:
    Host: %s
    Port: %d
  Log:
    Level: %s
    Format: %s
    File: %s`,
		c.Database.Path,
		c.Tracker.PollInterval,
		c.Tracker.EventBuffer,
		c.Tracker.ResolverCacheSize,
		c.Tracker.DisplayServer,
		c.Tracker.Journal,
		c.Daemon.PIDFile,
		c.Report.TimeZone,
		c.Report.HistoryLimit,
		c.Web.Host,
		c.Web.Port,
		c.Log.Level,
		c.Log.Format,
		c.Log.File,
	)
}
