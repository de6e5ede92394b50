package config

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultDownloadsRoot  = "downloads"
	DefaultConcurrency    = 5
	DefaultMaxAttempts    = 5
	DefaultApiBaseUrl     = "https://kemono.su/api/v1"
	DefaultHistoryDBPath  = "" // Empty disables the history store
	DefaultLogApiRequests = false
	DefaultApiLogFile     = "api.log"
	DefaultHTTPTimeoutSec = 120
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config holds the application's configuration settings.
type Config struct {
	DownloadsRoot  string `toml:"DownloadsRoot"`
	ApiBaseUrl     string `toml:"ApiBaseUrl"`
	HistoryDBPath  string `toml:"HistoryDBPath"`
	ApiLogFile     string `toml:"ApiLogFile"`
	LogLevel       string `toml:"LogLevel"`
	LogFormat      string `toml:"LogFormat"`
	Concurrency    int    `toml:"Concurrency"`
	MaxAttempts    int    `toml:"MaxAttempts"`
	HTTPTimeoutSec int    `toml:"HttpTimeoutSec"`
	LogApiRequests bool   `toml:"LogApiRequests"`
}

// CliFlags holds pointers to values received from command-line flags.
// Nil fields indicate the flag was not provided by the user.
type CliFlags struct {
	DownloadsRoot  *string
	HistoryDBPath  *string
	LogLevel       *string
	LogFormat      *string
	Concurrency    *int
	MaxAttempts    *int
	LogApiRequests *bool
}

// setViperDefaults configures Viper with the application's default values.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("downloadsroot", DefaultDownloadsRoot)
	v.SetDefault("apibaseurl", DefaultApiBaseUrl)
	v.SetDefault("historydbpath", DefaultHistoryDBPath)
	v.SetDefault("apilogfile", DefaultApiLogFile)
	v.SetDefault("loglevel", DefaultLogLevel)
	v.SetDefault("logformat", DefaultLogFormat)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("maxattempts", DefaultMaxAttempts)
	v.SetDefault("httptimeoutsec", DefaultHTTPTimeoutSec)
	v.SetDefault("logapirequests", DefaultLogApiRequests)
}

// Load reads the configuration: defaults, then the optional config
// file, then CLI flag overrides. A missing config file is not an
// error; a malformed one is.
func Load(v *viper.Viper, cfgFile string, flags CliFlags) (Config, error) {
	setViperDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/kemono-downloader")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			log.Debug("No config file found, using defaults")
		} else {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Debugf("Using config file: %s", v.ConfigFileUsed())
	}

	cfg := Config{
		DownloadsRoot:  v.GetString("downloadsroot"),
		ApiBaseUrl:     v.GetString("apibaseurl"),
		HistoryDBPath:  v.GetString("historydbpath"),
		ApiLogFile:     v.GetString("apilogfile"),
		LogLevel:       v.GetString("loglevel"),
		LogFormat:      v.GetString("logformat"),
		Concurrency:    v.GetInt("concurrency"),
		MaxAttempts:    v.GetInt("maxattempts"),
		HTTPTimeoutSec: v.GetInt("httptimeoutsec"),
		LogApiRequests: v.GetBool("logapirequests"),
	}

	applyFlags(&cfg, flags)

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return cfg, nil
}

// applyFlags overlays explicitly provided CLI flags onto the config.
func applyFlags(cfg *Config, flags CliFlags) {
	if flags.DownloadsRoot != nil {
		cfg.DownloadsRoot = *flags.DownloadsRoot
	}
	if flags.HistoryDBPath != nil {
		cfg.HistoryDBPath = *flags.HistoryDBPath
	}
	if flags.LogLevel != nil {
		cfg.LogLevel = *flags.LogLevel
	}
	if flags.LogFormat != nil {
		cfg.LogFormat = *flags.LogFormat
	}
	if flags.Concurrency != nil {
		cfg.Concurrency = *flags.Concurrency
	}
	if flags.MaxAttempts != nil {
		cfg.MaxAttempts = *flags.MaxAttempts
	}
	if flags.LogApiRequests != nil {
		cfg.LogApiRequests = *flags.LogApiRequests
	}
}
