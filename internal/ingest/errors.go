package ingest

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to check.
var (
	// ErrSizeMismatch reports assembled bytes that do not match the size the
	// device advertised. Nothing is written for such an object.
	ErrSizeMismatch = errors.New("ingest: transferred size does not match object size")
	// ErrSuffixExhausted reports that every collision suffix up to the cap is
	// taken.
	ErrSuffixExhausted = errors.New("ingest: no free collision suffix")
	// ErrSessionClose reports a session that could not be closed.
	ErrSessionClose = errors.New("ingest: closing camera session failed")
	// ErrBadFilename reports a device filename that cannot be placed safely.
	ErrBadFilename = errors.New("ingest: unusable filename")
)

// Kind classifies where a failure is contained.
type Kind int

// Failure kinds, from narrowest to widest.
const (
	KindObject Kind = iota
	KindVolume
	KindDevice
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindVolume:
		return "volume"
	case KindDevice:
		return "device"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// StageError is a categorized pipeline failure.
type StageError struct {
	Kind  Kind
	Stage string // e.g. "object info", "transfer", "commit"
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(kind Kind, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// KindOf returns the Kind of err, KindObject for uncategorized errors.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}

	return KindObject
}
