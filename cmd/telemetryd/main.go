// Package main implements telemetryd, the rocket telemetry acquisition
// daemon. It polls a sensor, records readings in memory, fans them out to
// the configured outputs and saves them as JSON and CSV on shutdown.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/config"
	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/logging"
	"github.com/kevinbdx35/rocket-telemetry/session"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "telemetryd"
)

// shutdownGrace is added to the processor stop timeout to bound Stop.
const shutdownGrace = 10 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cli, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cli); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s (%s)\n", appName, Version, BuildTime)
		return nil
	}
	if cli.ShowHelp {
		cli.usage(stdout)
		return nil
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	if cli.Validate {
		data, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		_, _ = fmt.Fprintf(stdout, "Configuration is valid\n%s\n", data)
		return nil
	}

	logs, err := logging.New(cfg.Logging, logging.WithAttrs(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logs.Close() }()
	slog.SetDefault(logs.Logger())

	if cli.LoadPath != "" {
		return loadSummary(context.Background(), cli.LoadPath, stdout)
	}

	return runSession(cfg, cli, logs)
}

// loadConfig layers the file, env file and environment, then applies the
// log flags, which win over everything else.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader(config.WithEnvFiles(cli.EnvFile), config.WithoutValidation())
	cfg, err := loader.Load(cli.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(cli.LogLevel)
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = strings.ToLower(cli.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runSession starts a session and blocks until a signal, the -duration
// deadline or the end of polling, then shuts down.
func runSession(cfg *config.Config, cli *CLIConfig, logs *logging.Service) error {
	sess, err := session.New(cfg, logs)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	// the session outlives signalCtx so Stop can drain it
	if err := sess.Start(context.Background()); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	slog.Info("Telemetry session running",
		"session", logs.Session(),
		"config_path", cli.ConfigPath,
		"duration", cli.Duration)

	var deadline <-chan time.Time
	if cli.Duration > 0 {
		timer := time.NewTimer(cli.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-signalCtx.Done():
		logs.SystemEvent("signal_received", nil)
	case <-deadline:
		logs.SystemEvent("duration_elapsed", map[string]any{"duration": cli.Duration.String()})
	case <-sess.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Processor.StopTimeout.Std()+shutdownGrace)
	defer cancel()

	stopErr := sess.Stop(shutdownCtx)
	if err := sess.Err(); err != nil {
		return fmt.Errorf("polling failed: %w", err)
	}
	if stopErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", stopErr)
	}
	slog.Info("Telemetry session complete", "readings", len(sess.Readings()))
	return nil
}
