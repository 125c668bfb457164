// Package timestamp holds the canonical text encoding of reading timestamps.
//
// Readings are written with a fixed nine-digit fraction so every saved
// document has the same width and a save/load cycle restores the exact
// instant:
//
//	2025-03-14T09:26:53.589793238Z
//	2025-03-14T10:26:53.000000000+01:00
//
// Parse also accepts RFC 3339 with any fraction width and zone-less
// timestamps (read as UTC), which older recordings contain.
package timestamp

import (
	"fmt"
	"time"
)

// Layout is the fixed-precision RFC 3339 layout used for every written timestamp.
const Layout = "2006-01-02T15:04:05.000000000Z07:00"

// FileLayout is the layout of the stamp embedded in default artifact names.
const FileLayout = "20060102_150405"

// zone-less variant, fraction optional
const naiveLayout = "2006-01-02T15:04:05.999999999"

// Format renders t in Layout, keeping its zone offset. Layout has no field
// for offset seconds, so a zone that is not a whole number of minutes from
// UTC (historic local mean times) is written as UTC instead.
func Format(t time.Time) string {
	if _, offset := t.Zone(); offset%60 != 0 {
		t = t.UTC()
	}
	return t.Format(Layout)
}

// Parse reads a timestamp written by Format, or any RFC 3339 timestamp, or a
// zone-less ISO 8601 timestamp which is taken to be UTC.
func Parse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(naiveLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: want layout %s", s, Layout)
}

// FileStamp renders t in local time as used by default artifact names.
func FileStamp(t time.Time) string {
	return t.Local().Format(FileLayout)
}

// ToUnixMs converts a time.Time to Unix milliseconds.
func ToUnixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMs converts Unix milliseconds to time.Time.
// Returns zero time if timestamp is 0.
func FromUnixMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
