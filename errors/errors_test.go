package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"sensor offline", ErrSensorOffline, true},
		{"circuit open", ErrCircuitOpen, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"format", ErrFormat, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err), "error: %v", test.err)
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"storage full", ErrStorageFull, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"fatal in message", fmt.Errorf("fatal system error occurred"), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsFatal(test.err))
		})
	}
}

func TestIsInvalid(t *testing.T) {
	assert.False(t, IsInvalid(nil))
	assert.True(t, IsInvalid(ErrInvalidData))
	assert.True(t, IsInvalid(ErrFormat))
	assert.True(t, IsInvalid(ErrReadingRejected))
	assert.False(t, IsInvalid(ErrConnectionLost))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "C", "M", "a"))

	base := errors.New("boom")
	err := Wrap(base, "Codec", "SaveJSON", "write file")
	require.Error(t, err)
	assert.Equal(t, "Codec.SaveJSON: write file failed: boom", err.Error())
	assert.True(t, errors.Is(err, base))
}

func TestWrapClassified(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name  string
		err   error
		class ErrorClass
	}{
		{"transient", WrapTransient(base, "C", "M", "a"), ErrorTransient},
		{"invalid", WrapInvalid(base, "C", "M", "a"), ErrorInvalid},
		{"fatal", WrapFatal(base, "C", "M", "a"), ErrorFatal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ce *ClassifiedError
			require.True(t, errors.As(tc.err, &ce))
			assert.Equal(t, tc.class, ce.Class)
			assert.Equal(t, "C", ce.Component)
			assert.Equal(t, "M", ce.Operation)
			assert.Equal(t, tc.class, Classify(tc.err))
			assert.True(t, errors.Is(tc.err, base))
		})
	}

	assert.Nil(t, WrapTransient(nil, "C", "M", "a"))
	assert.Nil(t, WrapInvalid(nil, "C", "M", "a"))
	assert.Nil(t, WrapFatal(nil, "C", "M", "a"))
}

func TestFormat(t *testing.T) {
	cause := errors.New("missing field altitude")
	err := Format(cause, "Codec", "LoadJSON", "decode document")

	assert.True(t, IsFormat(err))
	assert.False(t, IsIO(err))
	assert.True(t, IsInvalid(err))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "missing field altitude")
}

func TestIO(t *testing.T) {
	missing := IO(fs.ErrNotExist, "Codec", "LoadJSON", "open file")
	assert.True(t, IsIO(missing))
	assert.False(t, IsFormat(missing))
	assert.Equal(t, ErrorTransient, Classify(missing))
	assert.True(t, errors.Is(missing, fs.ErrNotExist))

	denied := IO(fs.ErrPermission, "Codec", "SaveJSON", "create directory")
	assert.True(t, IsIO(denied))
	assert.Equal(t, ErrorFatal, Classify(denied))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.Equal(t, ErrorTransient, Classify(ErrConnectionLost))
	assert.Equal(t, ErrorFatal, Classify(ErrInvalidConfig))
	assert.Equal(t, ErrorInvalid, Classify(ErrParsingFailed))
	assert.Equal(t, ErrorTransient, Classify(errors.New("something odd")))
}
