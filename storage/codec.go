package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/metric"
	"github.com/kevinbdx35/rocket-telemetry/pkg/timestamp"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

// CSVHeader is the column order of saved tables.
var CSVHeader = []string{
	"timestamp", "altitude", "velocity",
	"acceleration_x", "acceleration_y", "acceleration_z",
	"temperature", "pressure",
	"orientation_roll", "orientation_pitch", "orientation_yaw",
	"gps_lat", "gps_lon", "battery_voltage",
}

// Codec encodes readings into JSON and CSV artifacts.
type Codec struct {
	store   Store
	logger  *slog.Logger
	metrics *metric.Metrics
	now     func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithLogger sets the codec logger.
func WithLogger(logger *slog.Logger) CodecOption {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics counts codec operations in m.
func WithMetrics(m *metric.Metrics) CodecOption {
	return func(c *Codec) {
		c.metrics = m
	}
}

// WithClock sets the clock used for default artifact names.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec returns a codec writing to store.
func NewCodec(store Store, opts ...CodecOption) *Codec {
	c := &Codec{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "storage")
	return c
}

// DefaultName returns the artifact name used when none is given, e.g.
// telemetry_20250314_092653.json.
func (c *Codec) DefaultName(ext string) string {
	return "telemetry_" + timestamp.FileStamp(c.now()) + ext
}

// freeName returns DefaultName(ext), or the first of name_1, name_2, ...
// not already in the store, so saves within one second keep every artifact.
func (c *Codec) freeName(ctx context.Context, ext string) string {
	name := c.DefaultName(ext)
	existing, err := c.store.List(ctx)
	if err != nil {
		return name
	}
	taken := make(map[string]bool, len(existing))
	for _, n := range existing {
		taken[n] = true
	}
	stem := strings.TrimSuffix(name, ext)
	for i := 1; taken[name]; i++ {
		name = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	return name
}

// SaveJSON writes readings as an indented JSON array and returns the path.
// An empty name selects DefaultName(".json"), suffixed when already taken.
func (c *Codec) SaveJSON(ctx context.Context, readings []reading.Reading, name string) (string, error) {
	if name == "" {
		name = c.freeName(ctx, ".json")
	}
	if readings == nil {
		readings = []reading.Reading{}
	}

	data, err := json.MarshalIndent(readings, "", "  ")
	if err != nil {
		err = errors.WrapInvalid(err, "Codec", "SaveJSON", "encode readings")
		return "", c.fail("json", "save", name, err)
	}
	data = append(data, '\n')

	path, err := c.store.Put(ctx, name, data)
	if err != nil {
		return "", c.fail("json", "save", name, err)
	}

	c.metrics.RecordStorage("json", "save", nil)
	c.logger.Info("Telemetry saved", "format", "json", "path", path, "count", len(readings))
	return path, nil
}

// SaveCSV writes readings as a CSV table with CSVHeader and returns the path.
// Absent optional fields are empty cells. An empty name selects
// DefaultName(".csv"), suffixed when already taken.
func (c *Codec) SaveCSV(ctx context.Context, readings []reading.Reading, name string) (string, error) {
	if name == "" {
		name = c.freeName(ctx, ".csv")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return "", c.fail("csv", "save", name, errors.WrapInvalid(err, "Codec", "SaveCSV", "write header"))
	}
	for _, r := range readings {
		if err := w.Write(csvRow(r)); err != nil {
			return "", c.fail("csv", "save", name, errors.WrapInvalid(err, "Codec", "SaveCSV", "write row"))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", c.fail("csv", "save", name, errors.WrapInvalid(err, "Codec", "SaveCSV", "flush rows"))
	}

	path, err := c.store.Put(ctx, name, buf.Bytes())
	if err != nil {
		return "", c.fail("csv", "save", name, err)
	}

	c.metrics.RecordStorage("csv", "save", nil)
	c.logger.Info("Telemetry saved", "format", "csv", "path", path, "count", len(readings))
	return path, nil
}

// LoadJSON reads a document written by SaveJSON. It returns all readings or
// none: any content problem is an errors.ErrFormat error, any filesystem
// problem an errors.ErrIO error.
func (c *Codec) LoadJSON(ctx context.Context, name string) ([]reading.Reading, error) {
	data, err := c.store.Get(ctx, name)
	if err != nil {
		return nil, c.fail("json", "load", name, err)
	}

	schema, err := readingsSchema()
	if err != nil {
		return nil, c.fail("json", "load", name, errors.WrapFatal(err, "Codec", "LoadJSON", "compile schema"))
	}
	if err := validateDocument(schema, data); err != nil {
		return nil, c.fail("json", "load", name, errors.Format(err, "Codec", "LoadJSON", "validate document"))
	}

	var readings []reading.Reading
	if err := json.Unmarshal(data, &readings); err != nil {
		return nil, c.fail("json", "load", name, errors.Format(err, "Codec", "LoadJSON", "decode readings"))
	}
	if readings == nil {
		readings = []reading.Reading{}
	}

	c.metrics.RecordStorage("json", "load", nil)
	c.logger.Info("Telemetry loaded", "name", name, "count", len(readings))
	return readings, nil
}

// Artifacts lists the saved artifacts in the store.
func (c *Codec) Artifacts(ctx context.Context) ([]string, error) {
	names, err := c.store.List(ctx)
	if err != nil {
		return nil, c.fail("any", "list", "", err)
	}
	return names, nil
}

func (c *Codec) fail(format, op, name string, err error) error {
	c.metrics.RecordStorage(format, op, err)
	c.logger.Error("Storage operation failed",
		"format", format,
		"operation", op,
		"name", name,
		"error", err)
	return err
}

func csvRow(r reading.Reading) []string {
	row := []string{
		timestamp.Format(r.Timestamp),
		formatFloat(r.Altitude),
		formatFloat(r.Velocity),
		formatFloat(r.Acceleration.X),
		formatFloat(r.Acceleration.Y),
		formatFloat(r.Acceleration.Z),
		formatFloat(r.Temperature),
		formatFloat(r.Pressure),
		formatFloat(r.Orientation.Roll),
		formatFloat(r.Orientation.Pitch),
		formatFloat(r.Orientation.Yaw),
		"", "", "",
	}
	if r.GPS != nil {
		row[11] = formatFloat(r.GPS.Lat)
		row[12] = formatFloat(r.GPS.Lon)
	}
	if r.BatteryVoltage != nil {
		row[13] = formatFloat(*r.BatteryVoltage)
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
