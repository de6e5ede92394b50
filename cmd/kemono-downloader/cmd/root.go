package cmd

import (
	"fmt"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NovaHFly/kemono-su-downloader/internal/api"
	"github.com/NovaHFly/kemono-su-downloader/internal/config"
)

// cfgFile holds the path to the config file specified by the user
var cfgFile string

var (
	logLevel  string
	logFormat string
)

// globalConfig holds the loaded configuration
var globalConfig config.Config

// globalHttpTransport holds the configured HTTP transport (base or
// logging-wrapped when LogApiRequests is enabled)
var globalHttpTransport http.RoundTripper

// apiLogTransport is kept so Execute can flush it on exit
var apiLogTransport *api.LoggingTransport

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kemono-downloader",
	Short: "A tool to download post attachments from kemono.su",
	Long: `Kemono Downloader resolves kemono.su posts into their creator,
title and attachments, and downloads every attachment to local storage.`,
	PersistentPreRunE: loadGlobalConfig,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if apiLogTransport != nil {
		if closeErr := apiLogTransport.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Error closing API log: %v\n", closeErr)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default is ./config.toml or ~/.config/kemono-downloader/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Logging level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Logging format (text, json)")
}

// loadGlobalConfig loads configuration and sets up logging and the
// shared HTTP transport before any command runs.
func loadGlobalConfig(cmd *cobra.Command, args []string) error {
	flags := config.CliFlags{}
	if cmd.Flags().Changed("log-level") {
		flags.LogLevel = &logLevel
	}
	if cmd.Flags().Changed("log-format") {
		flags.LogFormat = &logFormat
	}
	applyDownloadFlags(cmd, &flags)

	cfg, err := config.Load(viper.GetViper(), cfgFile, flags)
	if err != nil {
		return err
	}
	globalConfig = cfg

	initLogging(cfg.LogLevel, cfg.LogFormat)

	globalHttpTransport = http.DefaultTransport
	if cfg.LogApiRequests {
		transport, err := api.NewLoggingTransport(http.DefaultTransport, cfg.ApiLogFile)
		if err != nil {
			return fmt.Errorf("setting up API request logging: %w", err)
		}
		apiLogTransport = transport
		globalHttpTransport = transport
		log.Debugf("API request logging enabled, writing to %s", cfg.ApiLogFile)
	}
	return nil
}

// initLogging configures logrus from the effective settings.
func initLogging(level, format string) {
	parsedLevel, err := log.ParseLevel(level)
	if err != nil {
		parsedLevel = log.InfoLevel
		log.Warnf("Invalid log level %q, falling back to info", level)
	}
	log.SetLevel(parsedLevel)

	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
