package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a benchmark failure
type ErrorKind int

const (
	// KindNone marks a successful trial
	KindNone ErrorKind = iota

	// KindInvalidDimensions is returned when a workload cannot be built
	KindInvalidDimensions

	// KindUnknownStrategy is returned for an unsupported hash, field or backend name
	KindUnknownStrategy

	// KindProverError wraps a failure raised by a proving backend
	KindProverError

	// KindTimeout marks a trial that exceeded its wall-clock bound
	KindTimeout

	// KindIOError marks a log, store or report write failure
	KindIOError
)

var kindNames = map[ErrorKind]string{
	KindNone:              "none",
	KindInvalidDimensions: "InvalidDimensions",
	KindUnknownStrategy:   "UnknownStrategy",
	KindProverError:       "ProverError",
	KindTimeout:           "Timeout",
	KindIOError:           "IOError",
}

// String returns the taxonomy name of the kind
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// MarshalText encodes the kind by name so reports stay readable
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind written by MarshalText
func (k *ErrorKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", text)
}

// BenchError is the error type shared by every harness component
type BenchError struct {
	Kind ErrorKind

	// Backend is set for ProverError and Timeout
	Backend string

	// Name is the rejected strategy name for UnknownStrategy
	Name string

	Message string
	Cause   error
}

// Error returns the error message
func (e *BenchError) Error() string {
	msg := e.Kind.String()
	switch {
	case e.Backend != "":
		msg += "[" + e.Backend + "]"
	case e.Name != "":
		msg += fmt.Sprintf("[%q]", e.Name)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the cause of the error
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is matches any BenchError of the same kind
func (e *BenchError) Is(target error) bool {
	t, ok := target.(*BenchError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is
var (
	ErrInvalidDimensions = &BenchError{Kind: KindInvalidDimensions}
	ErrUnknownStrategy   = &BenchError{Kind: KindUnknownStrategy}
	ErrProver            = &BenchError{Kind: KindProverError}
	ErrTimeout           = &BenchError{Kind: KindTimeout}
	ErrIO                = &BenchError{Kind: KindIOError}
)

// InvalidDimensions builds a workload construction error
func InvalidDimensions(steps, columns int) *BenchError {
	return &BenchError{
		Kind:    KindInvalidDimensions,
		Message: fmt.Sprintf("steps=%d columns=%d (both must be >= 2)", steps, columns),
	}
}

// UnknownStrategy builds a configuration error for an unsupported name
func UnknownStrategy(what, name string) *BenchError {
	return &BenchError{
		Kind:    KindUnknownStrategy,
		Name:    name,
		Message: "unsupported " + what,
	}
}

// ProverError wraps a backend failure
func ProverError(backend string, cause error) *BenchError {
	return &BenchError{Kind: KindProverError, Backend: backend, Cause: cause}
}

// Timeout builds the error recorded for a trial that ran out of time
func Timeout(backend string, cause error) *BenchError {
	return &BenchError{Kind: KindTimeout, Backend: backend, Message: "trial exceeded its time bound", Cause: cause}
}

// IOError wraps a write failure
func IOError(message string, cause error) *BenchError {
	return &BenchError{Kind: KindIOError, Message: message, Cause: cause}
}

// KindOf classifies err. Deadline errors are reported as timeouts and
// anything unclassified counts as a prover failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var be *BenchError
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindProverError
}
