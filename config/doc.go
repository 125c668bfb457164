// Package config loads and validates telemetryd configuration.
//
// A configuration file may be JSON, YAML or TOML; the decoder is chosen by
// extension. Values are layered in this order, later layers winning:
//
//  1. Default()
//  2. the configuration file, when a path is given
//  3. variables from .env files (godotenv)
//  4. TELEMETRY_* process environment variables
//
// Durations are written as strings ("100ms", "5s"). Unknown keys are
// rejected so typos surface at startup instead of silently keeping a default.
//
// # Basic Usage
//
//	cfg, err := config.Load("configs/telemetry.yaml")
//	if err != nil {
//		return err
//	}
//	proc, err := processor.New(cfg.Processor.ToProcessor())
//
// SafeConfig guards a Config shared between goroutines; Get returns a deep
// copy and Update validates before swapping.
package config
