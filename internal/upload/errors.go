package upload

import (
	"errors"
	"fmt"
)

// Phase names the step of the pipeline an error came from.
type Phase string

const (
	PhasePresign  Phase = "presign"
	PhaseTransfer Phase = "transfer"
	PhaseCommit   Phase = "commit"
	PhaseDirect   Phase = "direct"
)

var (
	// ErrInvalidStrategy is returned before any phase runs when a strategy
	// is missing an operation it needs.
	ErrInvalidStrategy = errors.New("upload: invalid strategy")
	// ErrInvalidRange is returned for a progress range without headroom.
	ErrInvalidRange = errors.New("upload: invalid progress range")
	// ErrEmptyTarget is wrapped in a PresignError when the presign service
	// answers without an upload URL or key.
	ErrEmptyTarget = errors.New("upload: presign returned an empty target")
)

// PresignError means no upload target was obtained. Nothing was stored.
type PresignError struct {
	Err error
}

func (e *PresignError) Error() string {
	return fmt.Sprintf("upload presign failed: %v", e.Err)
}

func (e *PresignError) Unwrap() error { return e.Err }

// TransferError means the bytes never fully reached the blob store. Key is
// abandoned; a retry needs a fresh presign.
type TransferError struct {
	Key string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("upload transfer of %q failed: %v", e.Key, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// CommitError means the object under Key was stored but no record was
// created for it: an orphaned blob.
type CommitError struct {
	Key string
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("upload commit of %q failed, object stored without a record: %v", e.Key, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// DirectError wraps a failed metadata-only request (no file supplied).
type DirectError struct {
	Err error
}

func (e *DirectError) Error() string {
	return fmt.Sprintf("metadata request failed: %v", e.Err)
}

func (e *DirectError) Unwrap() error { return e.Err }

// OrphanedKey returns the key of a blob left without a record, if err
// reports one.
func OrphanedKey(err error) (string, bool) {
	var ce *CommitError
	if errors.As(err, &ce) {
		return ce.Key, true
	}
	return "", false
}

// FailedPhase reports which pipeline phase produced err.
func FailedPhase(err error) (Phase, bool) {
	var (
		pe *PresignError
		te *TransferError
		ce *CommitError
		de *DirectError
	)
	switch {
	case errors.As(err, &ce):
		return PhaseCommit, true
	case errors.As(err, &te):
		return PhaseTransfer, true
	case errors.As(err, &pe):
		return PhasePresign, true
	case errors.As(err, &de):
		return PhaseDirect, true
	default:
		return "", false
	}
}
