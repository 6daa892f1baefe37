package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/engine"
	"github.com/roach88/finflow/internal/fin"
)

func ptr(v float64) *float64 { return &v }

func TestOutputFormatter_JSONPrint(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Print(map[string]string{"result": "success"}, func(io.Writer) {
		t.Fatal("text renderer called in json mode")
	})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_TextPrint(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Print("ignored", func(w io.Writer) {
		fmt.Fprint(w, "3 runs")
	})
	require.NoError(t, err)
	assert.Equal(t, "3 runs", buf.String())
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     string
		exitCode int
	}{
		{
			name:     "engine rejection",
			err:      &engine.Error{Code: engine.CodeNotAwaitingReview, Op: "resume", Err: engine.ErrNotAwaitingReview},
			code:     "NOT_AWAITING_REVIEW",
			exitCode: ExitFailure,
		},
		{
			name:     "conflict",
			err:      fmt.Errorf("put: %w", checkpoint.ErrConflict),
			code:     "CONFLICT",
			exitCode: ExitFailure,
		},
		{
			name:     "persistence",
			err:      &engine.Error{Code: engine.CodePersistence, Op: "status", Err: errors.New("disk full")},
			code:     "PERSISTENCE_FAILURE",
			exitCode: ExitCommandError,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			code:     "INTERNAL",
			exitCode: ExitCommandError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Fail("request failed", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestOutputFormatter_FailTextWritesNothing(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail("request failed", errors.New("boom"))
	require.Error(t, err)
	assert.Equal(t, "request failed: boom", err.Error())
	assert.Empty(t, buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	t.Run("verbose disabled", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Writer: buf, Verbose: false}
		formatter.VerboseLog("debug %d", 1)
		assert.Empty(t, buf.String())
	})

	t.Run("verbose uses ErrWriter", func(t *testing.T) {
		out := &bytes.Buffer{}
		errOut := &bytes.Buffer{}
		formatter := &OutputFormatter{Writer: out, ErrWriter: errOut, Verbose: true}
		formatter.VerboseLog("debug %d", 1)
		assert.Empty(t, out.String())
		assert.Equal(t, "debug 1\n", errOut.String())
	})

	t.Run("falls back to Writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Writer: buf, Verbose: true}
		formatter.VerboseLog("hello")
		assert.Equal(t, "hello\n", buf.String())
	})
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "failed"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestWriteResult(t *testing.T) {
	t.Run("needs review", func(t *testing.T) {
		buf := &bytes.Buffer{}
		writeResult(buf, &engine.Result{
			RunID:  "run-1",
			DocID:  "doc-1",
			Status: engine.ResultNeedsReview,
			Review: &engine.ReviewPayload{
				Period:   "2024-12-31",
				Currency: "MXN",
				Issues: []fin.Issue{
					{Code: fin.IssueEquationImbalance, Severity: fin.SeverityError, Message: "assets do not match liabilities plus equity"},
				},
			},
		})
		out := buf.String()
		assert.Contains(t, out, "run run-1 (doc doc-1): NEEDS_REVIEW")
		assert.Contains(t, out, "EQ_IMBALANCE")
		assert.Contains(t, out, "currency MXN")
	})

	t.Run("ready", func(t *testing.T) {
		buf := &bytes.Buffer{}
		writeResult(buf, &engine.Result{
			RunID:    "run-1",
			Status:   engine.ResultReady,
			Scenario: "stress",
			Ratios:   &fin.RatioSet{CurrentRatio: ptr(2), DebtToEquity: ptr(1.5)},
			Degraded: []string{"upload_failed"},
		})
		out := buf.String()
		assert.Contains(t, out, "READY")
		assert.Contains(t, out, "scenario: stress")
		assert.Contains(t, out, "degraded: upload_failed")
		assert.Contains(t, out, "current_ratio")
		assert.Contains(t, out, "2.0000")
		assert.Contains(t, out, "1.5000")
		assert.NotContains(t, out, "quick_ratio")
	})
}
