package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/confhub/internal/config"
	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/log"
	"github.com/zjrosen/confhub/internal/protoconf"
	"github.com/zjrosen/confhub/internal/tracing"
)

const defaultConfigPath = ".confhub/config.yaml"

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
	noColor bool

	// registry holds every table this binary knows how to load.
	registry = hub.NewRegistry()

	logCleanup     = func() {}
	tracerProvider *tracing.Provider
)

var rootCmd = &cobra.Command{
	Use:   "confhub",
	Short: "Load, validate and inspect configuration tables",
	Long: `confhub loads a directory of configuration tables (one file per table,
JSON or binary) into a hub, builds their indices and reports per-table
failures without stopping the rest of the batch.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	if err := protoconf.RegisterAll(registry); err != nil {
		panic(err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .confhub/config.yaml, then ~/.config/confhub/config.yaml)")
	rootCmd.PersistentFlags().StringP("dir", "d", "", "directory holding the table files")
	rootCmd.PersistentFlags().StringP("format", "f", "", "table file format: json or binary")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Bind flags to viper
	_ = viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("dir", defaults.Dir)
	viper.SetDefault("format", defaults.Format)
	viper.SetDefault("concurrency", defaults.Concurrency)
	viper.SetDefault("timeout", defaults.Timeout)
	viper.SetDefault("ignore_unknown_fields", defaults.IgnoreUnknownFields)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viper.SetDefault("watch.min_interval", defaults.Watch.MinInterval)
	viper.SetDefault("mutable_check.enabled", defaults.MutableCheck.Enabled)
	viper.SetDefault("mutable_check.interval", defaults.MutableCheck.Interval)
	viper.SetDefault("journal.enabled", defaults.Journal.Enabled)
	viper.SetDefault("journal.path", defaults.Journal.Path)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	viper.SetEnvPrefix("CONFHUB")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .confhub/config.yaml (current directory)
		// 2. ~/.config/confhub/config.yaml (user config)
		if _, err := os.Stat(defaultConfigPath); err == nil {
			viper.SetConfigFile(defaultConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "confhub"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .confhub/config.yaml
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if writeErr := config.WriteDefaultConfig(defaultConfigPath); writeErr == nil {
				viper.SetConfigFile(defaultConfigPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// setup validates the config and starts logging and tracing before any
// subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Log.File != "" {
		cleanup, err := log.Init(cfg.Log.File)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logCleanup = cleanup
	} else {
		log.InitWriter(os.Stderr, noColor || !isatty.IsTerminal(os.Stderr.Fd()))
	}
	level, _ := log.ParseLevel(cfg.Log.Level)
	log.SetMinLevel(level)
	log.Debug(log.CatConfig, "Configuration loaded", "file", viper.ConfigFileUsed(), "dir", cfg.Dir, "format", cfg.Format)

	provider, err := tracing.NewProvider(cfg.Tracing.ToTracing())
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	tracerProvider = provider
	return nil
}

func teardown(ctx context.Context) {
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "Tracing shutdown failed", err)
		}
		tracerProvider = nil
	}
	logCleanup()
	logCleanup = func() {}
}

// configPath returns the file config edits are written to.
func configPath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	return defaultConfigPath
}

// Execute runs the root command
func Execute() error {
	defer teardown(context.Background())
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
