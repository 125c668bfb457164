package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/kevinbdx35/rocket-telemetry/pkg/timestamp"
	"github.com/kevinbdx35/rocket-telemetry/reading"
	"github.com/kevinbdx35/rocket-telemetry/storage"
)

// Summary describes a saved document.
type Summary struct {
	Count       int
	First       string
	Last        string
	MaxAltitude float64
	MaxVelocity float64
}

func summarize(readings []reading.Reading) Summary {
	s := Summary{Count: len(readings)}
	if len(readings) == 0 {
		return s
	}
	s.First = timestamp.Format(readings[0].Timestamp)
	s.Last = timestamp.Format(readings[len(readings)-1].Timestamp)
	s.MaxAltitude = readings[0].Altitude
	s.MaxVelocity = readings[0].Velocity
	for _, r := range readings[1:] {
		s.MaxAltitude = max(s.MaxAltitude, r.Altitude)
		s.MaxVelocity = max(s.MaxVelocity, r.Velocity)
	}
	return s
}

// loadSummary loads path with the storage codec and prints a summary to w.
func loadSummary(ctx context.Context, path string, w io.Writer) error {
	codec := storage.NewCodec(storage.NewFileStore(filepath.Dir(path)))
	readings, err := codec.LoadJSON(ctx, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	s := summarize(readings)
	_, _ = fmt.Fprintf(w, "File:         %s\n", path)
	_, _ = fmt.Fprintf(w, "Readings:     %d\n", s.Count)
	if s.Count == 0 {
		return nil
	}
	_, _ = fmt.Fprintf(w, "First:        %s\n", s.First)
	_, _ = fmt.Fprintf(w, "Last:         %s\n", s.Last)
	_, _ = fmt.Fprintf(w, "Max altitude: %.2f m\n", s.MaxAltitude)
	_, _ = fmt.Fprintf(w, "Max velocity: %.2f m/s\n", s.MaxVelocity)
	return nil
}
