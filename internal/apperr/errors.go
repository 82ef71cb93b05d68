// Package apperr holds the error taxonomy shared by the export pipeline.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration: no valid selection or no output directory. Fatal to a run.
	ErrConfiguration = errors.New("configuration error")
	// ErrPreferenceRecord: the persisted preference record cannot be parsed.
	ErrPreferenceRecord = errors.New("preference record error")
	// ErrEncode: the encoder failed for one job.
	ErrEncode = errors.New("encode error")
	// ErrSynthesis: building the isolated copy failed for one job.
	ErrSynthesis = errors.New("synthesis error")

	ErrNotFound = errors.New("not found")
	ErrBusy     = errors.New("export already running")
	ErrInvalid  = errors.New("invalid input")
)

// Configuration returns an ErrConfiguration carrying a user-facing reason.
func Configuration(reason string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, reason)
}

// JobError is a per-job failure. Kind is ErrEncode or ErrSynthesis.
type JobError struct {
	Label string
	Kind  error
	Err   error
}

func (e *JobError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Label, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *JobError) Unwrap() []error { return []error{e.Kind, e.Err} }

// Encode wraps err as an ErrEncode job failure.
func Encode(label string, err error) error {
	return &JobError{Label: label, Kind: ErrEncode, Err: err}
}

// Synthesis wraps err as an ErrSynthesis job failure.
func Synthesis(label string, err error) error {
	return &JobError{Label: label, Kind: ErrSynthesis, Err: err}
}
