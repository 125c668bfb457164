package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	EnvFile     string
	LogLevel    string
	LogFormat   string
	Duration    time.Duration
	LoadPath    string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool

	usage func(w io.Writer)
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("TELEMETRY_CONFIG", ""),
		"Path to a JSON, YAML or TOML configuration file (env: TELEMETRY_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("TELEMETRY_CONFIG", ""),
		"Path to configuration file (env: TELEMETRY_CONFIG)")

	fs.StringVar(&cfg.EnvFile, "env-file",
		getEnv("TELEMETRY_ENV_FILE", ".env"),
		"dotenv file with TELEMETRY_* overrides (env: TELEMETRY_ENV_FILE)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("TELEMETRY_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: TELEMETRY_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("TELEMETRY_LOG_FORMAT", ""),
		"Console log format: text, json (env: TELEMETRY_LOG_FORMAT)")

	fs.DurationVar(&cfg.Duration, "duration",
		getEnvDuration("TELEMETRY_DURATION", 0),
		"Stop after this long, 0 runs until interrupted (env: TELEMETRY_DURATION)")

	fs.StringVar(&cfg.LoadPath, "load", "", "Summarize a saved JSON document and exit")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs, stderr)
	}
	cfg.usage = func(w io.Writer) {
		fs.SetOutput(w)
		printDetailedHelp(fs, w)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"", "debug", "info", "warn", "error"}
	if !contains(validLevels, strings.ToLower(cfg.LogLevel)) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"", "json", "text"}
	if !contains(validFormats, strings.ToLower(cfg.LogFormat)) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.Duration < 0 {
		return fmt.Errorf("invalid duration: %s", cfg.Duration)
	}

	return nil
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - Rocket telemetry acquisition

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Run with the built-in defaults (mock sensor, 10 Hz)
  %s

  # Run a 30 second session with debug logging
  %s -duration=30s -log-level=debug

  # Run with a config file and environment overrides
  export TELEMETRY_SAMPLE_RATE=50
  %s -config=telemetry.yaml

  # Summarize a saved document
  %s -load=logs/telemetry_20250314_092653.json

Version: %s
Build: %s
`, appName, appName, appName, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
