package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override
const EnvPrefix = "FOCUSMRU"

// envAliases maps config keys to short environment variable names, in
// addition to the FOCUSMRU_<SECTION>_<KEY> form viper derives itself.
var envAliases = map[string]string{
	"database.path":          "FOCUSMRU_DB_PATH",
	"tracker.poll_interval":  "FOCUSMRU_POLL_INTERVAL",
	"tracker.display_server": "FOCUSMRU_DISPLAY_SERVER",
	"daemon.pid_file":        "FOCUSMRU_PID_FILE",
	"report.timezone":        "FOCUSMRU_TIMEZONE",
	"web.host":               "FOCUSMRU_WEB_HOST",
	"web.port":               "FOCUSMRU_WEB_PORT",
	"log.level":              "FOCUSMRU_LOG_LEVEL",
}

// SetDefaults registers every key of cfg with v so that environment
// variables and config files can override it.
func SetDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.path", cfg.Database.Path)

	v.SetDefault("tracker.poll_interval", cfg.Tracker.PollInterval)
	v.SetDefault("tracker.event_buffer", cfg.Tracker.EventBuffer)
	v.SetDefault("tracker.resolver_cache_size", cfg.Tracker.ResolverCacheSize)
	v.SetDefault("tracker.display_server", cfg.Tracker.DisplayServer)
	v.SetDefault("tracker.journal", cfg.Tracker.Journal)

	v.SetDefault("daemon.pid_file", cfg.Daemon.PIDFile)

	v.SetDefault("report.timezone", cfg.Report.TimeZone)
	v.SetDefault("report.history_limit", cfg.Report.HistoryLimit)

	v.SetDefault("web.host", cfg.Web.Host)
	v.SetDefault("web.port", cfg.Web.Port)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
}

// BindEnv enables FOCUSMRU_* environment overrides on v
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, alias := range envAliases {
		long := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, long, alias); err != nil {
			return errors.Wrapf(err, "failed to bind %s", alias)
		}
	}
	return nil
}

// Load builds the configuration from defaults, the config file and the
// environment, in increasing priority. An empty configFile reads
// config.yaml from ConfigDir when it exists.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	SetDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	if err := BindEnv(v); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

// New loads the configuration, falling back to defaults when it is invalid
func New() *Config {
	cfg, err := Load("")
	if err != nil {
		return Default()
	}
	return cfg
}
