package msa

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the pipeline wraps exactly one of
// these so callers can classify it with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrAlignmentBackend = errors.New("alignment backend failure")
	ErrMergeConsistency = errors.New("merge consistency violation")
)

// Error is a classified pipeline failure.
type Error struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Op names the component or operation that failed (e.g. "chunker", "mafft").
	Op string
	// Detail is a human-readable description.
	Detail string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// InvalidInput reports a problem with the supplied sequences.
func InvalidInput(op, format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// InsufficientData reports that a computation needs more sequences.
func InsufficientData(op, format string, args ...any) error {
	return &Error{Kind: ErrInsufficientData, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// InvalidConfig reports a rejected configuration value.
func InvalidConfig(op, format string, args ...any) error {
	return &Error{Kind: ErrInvalidConfig, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// BackendFailure wraps an external aligner failure.
func BackendFailure(op string, err error, format string, args ...any) error {
	return &Error{Kind: ErrAlignmentBackend, Op: op, Detail: fmt.Sprintf(format, args...), Err: err}
}

// MergeInconsistency reports a broken merge invariant. It always indicates a
// defect, never a user error.
func MergeInconsistency(op, format string, args ...any) error {
	return &Error{Kind: ErrMergeConsistency, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the sentinel kind of err, or nil if err is unclassified.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrInvalidInput,
		ErrInsufficientData,
		ErrInvalidConfig,
		ErrAlignmentBackend,
		ErrMergeConsistency,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
