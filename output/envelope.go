package output

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/pkg/timestamp"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

// TypeReading tags envelopes that carry a telemetry reading.
const TypeReading = "reading"

// Envelope wraps a payload with an id and publish time so subscribers can
// de-duplicate and measure latency.
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Source    string          `json:"source,omitempty"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds at publish
	Payload   json.RawMessage `json:"payload"`
}

// NewReadingEnvelope encodes r in its persisted JSON form.
func NewReadingEnvelope(source string, r reading.Reading, now time.Time) (Envelope, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return Envelope{}, errors.WrapInvalid(err, "output", "NewReadingEnvelope", "encode reading")
	}
	return Envelope{
		Type:      TypeReading,
		ID:        uuid.NewString(),
		Source:    source,
		Timestamp: timestamp.ToUnixMs(now),
		Payload:   payload,
	}, nil
}

// EncodeReading builds and marshals a reading envelope in one step.
func EncodeReading(source string, r reading.Reading, now time.Time) ([]byte, error) {
	env, err := NewReadingEnvelope(source, r, now)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Reading decodes the payload of a reading envelope.
func (e Envelope) Reading() (reading.Reading, error) {
	var r reading.Reading
	if e.Type != TypeReading {
		return r, errors.WrapInvalid(errors.ErrInvalidData, "Envelope", "Reading", "check type "+e.Type)
	}
	if err := json.Unmarshal(e.Payload, &r); err != nil {
		return r, errors.WrapInvalid(err, "Envelope", "Reading", "decode payload")
	}
	return r, nil
}
