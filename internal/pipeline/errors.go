package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies job failures and degradations.
type Kind string

const (
	// KindInput marks unreadable sources or empty narration. Fatal.
	KindInput Kind = "input_error"
	// KindSynthesisDegraded marks a fallback-timing run. Non-fatal.
	KindSynthesisDegraded Kind = "synthesis_degraded"
	// KindEncodeUnavailable means no encoder survived probing. Fatal.
	KindEncodeUnavailable Kind = "encode_unavailable"
	// KindEncodeFailed marks a subprocess failure or missing output.
	// Fatal; the job temp dir is preserved for diagnosis.
	KindEncodeFailed Kind = "encode_failed"
	// KindPerturbationSkipped marks a skipped cosmetic step. Non-fatal.
	KindPerturbationSkipped Kind = "perturbation_skipped"
)

// Fatal reports whether the kind aborts the job.
func (k Kind) Fatal() bool {
	switch k {
	case KindInput, KindEncodeUnavailable, KindEncodeFailed:
		return true
	}
	return false
}

// Error is the structured job failure surfaced to collaborators.
// Artifact points at preserved on-disk state when there is any.
type Error struct {
	Kind     Kind
	Message  string
	Artifact string
	Err      error
}

func (e *Error) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("%s: %s (artifacts: %s)", e.Kind, e.Message, e.Artifact)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// newError wraps err into a structured job error.
func newError(kind Kind, artifact string, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Artifact: artifact,
		Err:      err,
	}
}

// AsError extracts a structured job error if err carries one.
func AsError(err error) (*Error, bool) {
	var je *Error
	if errors.As(err, &je) {
		return je, true
	}
	return nil, false
}
