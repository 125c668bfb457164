package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	cerrors "github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

// Option configures a Service.
type Option func(*options)

type options struct {
	console io.Writer
	attrs   []any
}

// WithConsole redirects console output. Defaults to os.Stdout; nil disables
// the console sink.
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// WithAttrs adds attributes to every record, e.g. service name and version.
func WithAttrs(args ...any) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, args...)
	}
}

// Service is the application logger.
type Service struct {
	logger  *slog.Logger
	session string
	files   []*closeOnce
}

// New builds the handlers described by cfg. An empty Directory disables the
// file sinks.
func New(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, cerrors.WrapInvalid(err, "logging", "New", "validate config")
	}
	o := options{console: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	level, _ := ParseLevel(cfg.Level)

	var handlers fanout
	if o.console != nil {
		handlers = append(handlers, consoleHandler(o.console, cfg, level))
	}

	s := &Service{session: uuid.NewString()}

	if cfg.Directory != "" {
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			return nil, cerrors.IO(err, "logging", "New", "create log directory")
		}
		mainLog := s.rotating(cfg, MainLogFile)
		errLog := s.rotating(cfg, ErrorLogFile)
		handlers = append(handlers,
			slog.NewJSONHandler(mainLog, &slog.HandlerOptions{Level: slog.LevelDebug}),
			slog.NewJSONHandler(errLog, &slog.HandlerOptions{Level: slog.LevelError}),
		)
	}

	var h slog.Handler = handlers
	if len(handlers) == 0 {
		h = slog.NewTextHandler(io.Discard, nil)
	}

	attrs := append([]any{"session", s.session}, o.attrs...)
	s.logger = slog.New(h).With(attrs...)
	return s, nil
}

func consoleHandler(w io.Writer, cfg Config, level slog.Level) slog.Handler {
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: level == slog.LevelDebug,
		})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		AddSource:  level == slog.LevelDebug,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    cfg.NoColor,
	})
}

func (s *Service) rotating(cfg Config, name string) *closeOnce {
	maxSize := cfg.MaxSizeMB
	if maxSize == 0 {
		maxSize = DefaultMaxSizeMB
	}
	backups := cfg.MaxBackups
	if backups == 0 {
		backups = DefaultMaxBackups
	}
	w := &closeOnce{w: &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, name),
		MaxSize:    maxSize,
		MaxBackups: backups,
	}}
	s.files = append(s.files, w)
	return w
}

// Logger returns the underlying structured logger for injection into
// components.
func (s *Service) Logger() *slog.Logger {
	return s.logger
}

// Session returns the id attached to every record of this process.
func (s *Service) Session() string {
	return s.session
}

// Close flushes and closes the rotating files. Records logged afterwards
// still reach the console but are dropped by the file sinks.
func (s *Service) Close() error {
	var errs []error
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Debug logs msg with data attached under the data group.
func (s *Service) Debug(msg string, data map[string]any) {
	s.logger.Debug(msg, payload(data)...)
}

func (s *Service) Info(msg string, data map[string]any) {
	s.logger.Info(msg, payload(data)...)
}

func (s *Service) Warn(msg string, data map[string]any) {
	s.logger.Warn(msg, payload(data)...)
}

func (s *Service) Error(msg string, data map[string]any) {
	s.logger.Error(msg, payload(data)...)
}

// SensorEvent logs a sensor lifecycle event such as "connected".
func (s *Service) SensorEvent(event, sensorName string, details map[string]any) {
	s.logger.Info("Sensor "+event+": "+sensorName,
		append([]any{"event", event, "sensor", sensorName}, payload(details)...)...)
}

// SystemEvent logs an application lifecycle event such as "startup".
func (s *Service) SystemEvent(event string, details map[string]any) {
	s.logger.Info("System event: "+event,
		append([]any{"event", event}, payload(details)...)...)
}

// ErrorEvent logs a categorized failure at error level.
func (s *Service) ErrorEvent(kind, message string, details map[string]any) {
	s.logger.Error("Error - "+kind+": "+message,
		append([]any{"error_type", kind}, payload(details)...)...)
}

// Reading dumps a reading at debug level.
func (s *Service) Reading(r reading.Reading) {
	s.logger.Debug("Telemetry reading received", slog.Group("data", slog.Any("reading", r)))
}

// payload turns a map into a "data" group with keys in sorted order.
func payload(data map[string]any) []any {
	if len(data) == 0 {
		return nil
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, data[k]))
	}
	return []any{slog.Group("data", attrs...)}
}
