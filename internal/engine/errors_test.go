package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/fin"
)

func TestNewError_Classifies(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"store no such run", &checkpoint.PersistenceError{Op: "get", Err: checkpoint.ErrNoSuchRun}, CodeNoSuchRun},
		{"not awaiting", fmt.Errorf("%w: status COMPLETED", ErrNotAwaitingReview), CodeNotAwaitingReview},
		{"not completed", ErrNotCompleted, CodeNotCompleted},
		{"bad path", fin.ErrInvalidFieldPath, CodeInvalidFieldPath},
		{"bad value", fin.ErrInvalidValue, CodeInvalidValue},
		{"conflict", &checkpoint.PersistenceError{Op: "put", Err: checkpoint.ErrConflict}, CodePersistence},
		{"other", errors.New("disk full"), CodePersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newError("op", "r1", tt.err)
			assert.Equal(t, tt.want, CodeOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNewError_NoSuchRunMatchesBothSentinels(t *testing.T) {
	err := newError("status", "r1", &checkpoint.PersistenceError{Op: "get", RunID: "r1", Err: checkpoint.ErrNoSuchRun})
	assert.ErrorIs(t, err, ErrNoSuchRun)
	assert.ErrorIs(t, err, checkpoint.ErrNoSuchRun)
}

func TestNewError_KeepsExistingEngineError(t *testing.T) {
	inner := newError("resume", "r1", ErrNotAwaitingReview)
	assert.Same(t, inner, newError("start", "r2", inner))
	assert.NoError(t, newError("x", "", nil))
}

func TestError_Message(t *testing.T) {
	err := &Error{Code: CodeNotCompleted, RunID: "r1", Op: "whatif", Err: ErrNotCompleted}
	assert.Equal(t, "whatif r1: NOT_COMPLETED: run is not completed", err.Error())

	err = &Error{Code: CodePersistence, Op: "list", Err: errors.New("timeout")}
	assert.Equal(t, "list: PERSISTENCE_FAILURE: timeout", err.Error())
}
