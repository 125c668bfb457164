package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinbdx35/rocket-telemetry/reading"
	"github.com/kevinbdx35/rocket-telemetry/storage"
)

func TestParseFlagsEnvFallback(t *testing.T) {
	t.Setenv("TELEMETRY_LOG_LEVEL", "debug")
	t.Setenv("TELEMETRY_DURATION", "3s")

	cli, err := parseFlags([]string{"-log-format", "json"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "debug", cli.LogLevel)
	assert.Equal(t, "json", cli.LogFormat)
	assert.Equal(t, 3*time.Second, cli.Duration)
	assert.Equal(t, ".env", cli.EnvFile)
	require.NoError(t, validateFlags(cli))
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		cli     CLIConfig
		wantErr string
	}{
		{"defaults", CLIConfig{}, ""},
		{"bad level", CLIConfig{LogLevel: "loud"}, "invalid log level"},
		{"bad format", CLIConfig{LogFormat: "xml"}, "invalid log format"},
		{"negative duration", CLIConfig{Duration: -time.Second}, "invalid duration"},
		{"missing config", CLIConfig{ConfigPath: "/does/not/exist.yaml"}, "config file not found"},
		{"version skips checks", CLIConfig{ShowVersion: true, LogLevel: "loud"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFlags(&tt.cli)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunVersion(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"-version"}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "telemetryd version "+Version)
}

func TestRunValidateRedactsSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sensor:
  sample_rate: 20
nats:
  enabled: true
  url: nats://localhost:4222
  password: hunter2
`), 0o600))

	var stdout bytes.Buffer
	err := run([]string{"-validate", "-config", path, "-env-file", filepath.Join(dir, "missing.env")},
		&stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Configuration is valid")
	assert.Contains(t, stdout.String(), `"sample_rate": 20`)
	assert.NotContains(t, stdout.String(), "hunter2")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processor:\n  buffer_size: 0\n"), 0o600))

	err := run([]string{"-validate", "-config", path, "-env-file", ""}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestSummarize(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	readings := []reading.Reading{
		{Timestamp: base, Altitude: 0, Velocity: 0},
		{Timestamp: base.Add(time.Second), Altitude: 150, Velocity: 90},
		{Timestamp: base.Add(2 * time.Second), Altitude: 120, Velocity: -10},
	}

	s := summarize(readings)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, "2026-05-01T12:00:00.000000000Z", s.First)
	assert.Equal(t, "2026-05-01T12:00:02.000000000Z", s.Last)
	assert.Equal(t, 150.0, s.MaxAltitude)
	assert.Equal(t, 90.0, s.MaxVelocity)

	assert.Equal(t, Summary{}, summarize(nil))
}

func TestLoadSummary(t *testing.T) {
	dir := t.TempDir()
	codec := storage.NewCodec(storage.NewFileStore(dir))
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	path, err := codec.SaveJSON(context.Background(), []reading.Reading{
		{Timestamp: base, Altitude: 10, Temperature: 20, Pressure: 101000},
		{Timestamp: base.Add(time.Second), Altitude: 42.5, Temperature: 19, Pressure: 100500},
	}, "flight.json")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, loadSummary(context.Background(), path, &out))
	text := out.String()
	assert.Contains(t, text, "Readings:     2")
	assert.Contains(t, text, "Max altitude: 42.50 m")
	assert.True(t, strings.Contains(text, "First:        2026-05-01T12:00:00"))

	err = loadSummary(context.Background(), filepath.Join(dir, "missing.json"), &out)
	assert.Error(t, err)
}

func TestRunHelp(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"-help"}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "Rocket telemetry acquisition")
	assert.Contains(t, stdout.String(), "-duration")
}
