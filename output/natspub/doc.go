// Package natspub publishes every processed reading to a NATS subject.
//
// The payload is an output.Envelope whose payload is the reading in its
// persisted JSON form, so a subscriber can decode it with the same code
// that loads saved documents.
package natspub
