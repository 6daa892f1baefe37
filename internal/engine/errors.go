package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/fin"
)

var (
	// ErrNoSuchRun is returned for an unknown run ID.
	ErrNoSuchRun = errors.New("no such run")

	// ErrNotAwaitingReview is returned when Resume targets a run that is not
	// suspended at the review gate.
	ErrNotAwaitingReview = errors.New("run is not awaiting review")

	// ErrNotCompleted is returned when WhatIf targets a run that has not
	// reached DONE.
	ErrNotCompleted = errors.New("run is not completed")

	// ErrNotStalled is returned when Continue targets a run that is
	// suspended, completed or otherwise not left mid-drive.
	ErrNotStalled = errors.New("run is not stalled")
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeNoSuchRun indicates the run ID is unknown.
	CodeNoSuchRun ErrorCode = "NO_SUCH_RUN"

	// CodeNotAwaitingReview indicates the run is not suspended.
	CodeNotAwaitingReview ErrorCode = "NOT_AWAITING_REVIEW"

	// CodeNotCompleted indicates a what-if on an unfinished run.
	CodeNotCompleted ErrorCode = "NOT_COMPLETED"

	// CodeNotStalled indicates a continue on a run that has nothing to
	// re-drive.
	CodeNotStalled ErrorCode = "NOT_STALLED"

	// CodeInvalidFieldPath indicates a correction or change names an
	// undeclared path.
	CodeInvalidFieldPath ErrorCode = "INVALID_FIELD_PATH"

	// CodeInvalidValue indicates a correction value that is not a number.
	CodeInvalidValue ErrorCode = "INVALID_VALUE"

	// CodePersistence indicates the checkpoint store failed.
	CodePersistence ErrorCode = "PERSISTENCE_FAILURE"
)

// Error is the error type returned by Engine operations.
//
// Error includes structured fields for diagnostics and for mapping to
// transport status codes. The cause is available through errors.Is and
// errors.As.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// RunID identifies the affected run, when known.
	RunID string

	// Op is the engine operation: start, resume, continue, whatif, status,
	// list or history.
	Op string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.RunID, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError classifies err and wraps it. A nil err yields nil.
func newError(op, runID string, err error) error {
	if err == nil {
		return nil
	}
	var ee *Error
	if errors.As(err, &ee) {
		return err
	}
	if checkpoint.IsNoSuchRun(err) && !errors.Is(err, ErrNoSuchRun) {
		err = fmt.Errorf("%w: %w", ErrNoSuchRun, err)
	}
	return &Error{Code: codeOf(err), RunID: runID, Op: op, Err: err}
}

func codeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrNoSuchRun):
		return CodeNoSuchRun
	case errors.Is(err, ErrNotAwaitingReview):
		return CodeNotAwaitingReview
	case errors.Is(err, ErrNotCompleted):
		return CodeNotCompleted
	case errors.Is(err, ErrNotStalled):
		return CodeNotStalled
	case errors.Is(err, fin.ErrInvalidFieldPath):
		return CodeInvalidFieldPath
	case errors.Is(err, fin.ErrInvalidValue):
		return CodeInvalidValue
	default:
		return CodePersistence
	}
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not an
// engine error.
func CodeOf(err error) ErrorCode {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}
