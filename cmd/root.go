package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/automateda/internal/config"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	logLevel string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "automateda",
	Short: "AutomatEDA: rank dataset variables by mutual information",
	Long: `AutomatEDA loads a tabular dataset, profiles it, and ranks each variable by its
estimated mutual information with a chosen prediction target. Use the CLI for
one-off files or "serve" for the browser UI and JSON API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.automateda/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error|off (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
	} else {
		cfg = c
	}
	initLogging()
}

// effectiveConfig returns the loaded config or, if loading failed, the defaults.
func effectiveConfig() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return cfgpkg.Defaults()
}

func initLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := logLevel
	if level == "" && cfg != nil {
		level = cfg.LogLevel
	}
	if debug {
		level = "debug"
	}
	lvl, err := parseLogLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; using info\n", err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// parseLogLevel maps a level name to zerolog. Unknown names yield info and an error.
func parseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q (use debug|info|warn|error|off)", level)
	}
}
