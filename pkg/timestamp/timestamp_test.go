package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFixedWidth(t *testing.T) {
	tests := []struct {
		name     string
		in       time.Time
		expected string
	}{
		{"utc nanos", time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC), "2025-03-14T09:26:53.589793238Z"},
		{"utc whole second", time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC), "2025-03-14T09:26:53.000000000Z"},
		{"offset", time.Date(2025, 3, 14, 10, 26, 53, 1000, time.FixedZone("", 3600)), "2025-03-14T10:26:53.000001000+01:00"},
		{"sub-minute offset", time.Date(1890, 1, 1, 12, 19, 32, 0, time.FixedZone("LMT", 19*60+32)), "1890-01-01T12:00:00.000000000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.in))
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("", -5*3600),
		time.FixedZone("", 5*3600+1800),
		time.FixedZone("LMT", 19*60+32),
		time.FixedZone("LMT", -(4*3600 + 56*60 + 2)),
	}
	for _, loc := range zones {
		in := time.Date(2024, 12, 31, 23, 59, 59, 999999999, loc)
		out, err := Parse(Format(in))
		require.NoError(t, err)
		assert.True(t, in.Equal(out), "%s != %s", in, out)
	}
}

func TestParseAcceptedForms(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 120000000, time.UTC)

	tests := []string{
		"2024-01-02T03:04:05.120000000Z",
		"2024-01-02T03:04:05.12Z",
		"2024-01-02T04:04:05.12+01:00",
		"2024-01-02T03:04:05.12",
		"2024-01-02T03:04:05.120000",
	}
	for _, s := range tests {
		got, err := Parse(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s parsed as %s", s, got)
	}

	got, err := Parse("2024-01-02T03:04:05")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Equal(got))
}

func TestParseRejects(t *testing.T) {
	for _, s := range []string{"", "yesterday", "2024-13-02T03:04:05Z", "2024-01-02 03:04:05", "1704164645"} {
		_, err := Parse(s)
		assert.Error(t, err, s)
	}
}

func TestFileStamp(t *testing.T) {
	ts := time.Date(2025, 7, 4, 18, 5, 9, 0, time.Local)
	assert.Equal(t, "20250704_180509", FileStamp(ts))
}

func TestUnixMs(t *testing.T) {
	assert.Equal(t, int64(0), ToUnixMs(time.Time{}))
	assert.True(t, FromUnixMs(0).IsZero())

	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, int64(1700000000123), ToUnixMs(ts))
	assert.True(t, ts.Equal(FromUnixMs(1700000000123)))
}
