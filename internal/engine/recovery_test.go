package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/finflow/internal/checkpoint"
	"github.com/roach88/finflow/internal/extract"
	"github.com/roach88/finflow/internal/fin"
	"github.com/roach88/finflow/internal/parse"
	"github.com/roach88/finflow/internal/testutil"
)

var errDiskFull = errors.New("disk full")

// failingStore fails the next Put whose run matches the armed predicate.
type failingStore struct {
	*checkpoint.MemoryStore

	mu   sync.Mutex
	when func(run *fin.Run) bool
}

func (s *failingStore) failNext(when func(run *fin.Run) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.when = when
}

func (s *failingStore) Put(ctx context.Context, run *fin.Run) error {
	s.mu.Lock()
	fail := s.when != nil && s.when(run)
	if fail {
		s.when = nil
	}
	s.mu.Unlock()

	if fail {
		return &checkpoint.PersistenceError{Op: "put", RunID: run.RunID, Err: errDiskFull}
	}
	return s.MemoryStore.Put(ctx, run)
}

func atNode(n fin.Node) func(*fin.Run) bool {
	return func(run *fin.Run) bool { return run.Node == n }
}

func newFailingHarness(t *testing.T, adapter extract.Adapter) (*testHarness, *failingStore) {
	t.Helper()
	h := newHarnessWithAdapter(t, adapter)
	store := &failingStore{MemoryStore: h.store}
	h.engine = New(store, parse.New(nil), adapter,
		WithClock(testutil.NewStepClock(time.Time{}, time.Second)),
		WithPublisher(h.events),
	)
	return h, store
}

func historyNodes(t *testing.T, e *Engine, runID string) []fin.Node {
	t.Helper()
	hist, err := e.History(context.Background(), runID)
	require.NoError(t, err)
	nodes := make([]fin.Node, len(hist))
	for i, cp := range hist {
		nodes[i] = cp.Node
	}
	return nodes
}

func TestStart_FirstCheckpointFailureLeavesNoRun(t *testing.T) {
	h, store := newFailingHarness(t, extract.Static{Result: balancedResult()})
	store.failNext(atNode(fin.NodeParse))

	_, err := h.engine.Start(context.Background(), StartRequest{RunID: "run-p", DocID: "doc-p", DocPath: h.docPath})
	require.Error(t, err)
	assert.Equal(t, CodePersistence, CodeOf(err))
	assert.ErrorIs(t, err, errDiskFull)

	_, err = h.engine.Status(context.Background(), "run-p")
	assert.Equal(t, CodeNoSuchRun, CodeOf(err))
}

func TestStart_MidDriveFailureStallsThenContinueCompletes(t *testing.T) {
	h, store := newFailingHarness(t, extract.Static{Result: balancedResult()})
	ctx := context.Background()

	// The checkpoint written after extract fails.
	store.failNext(atNode(fin.NodeValidate))
	_, err := h.engine.Start(ctx, StartRequest{RunID: "run-s", DocID: "doc-s", DocPath: h.docPath})
	require.Error(t, err)
	assert.Equal(t, CodePersistence, CodeOf(err))

	view, err := h.engine.Status(ctx, "run-s")
	require.NoError(t, err)
	assert.Equal(t, fin.StatusRunning, view.State.Status)
	assert.Equal(t, fin.NodeExtract, view.State.Node)
	assert.False(t, view.Interrupted)
	assert.True(t, view.State.Stalled())

	_, err = h.engine.Resume(ctx, "run-s", nil)
	assert.Equal(t, CodeNotAwaitingReview, CodeOf(err))
	_, err = h.engine.WhatIf(ctx, WhatIfRequest{RunID: "run-s"})
	assert.Equal(t, CodeNotCompleted, CodeOf(err))

	res, err := h.engine.Continue(ctx, "run-s")
	require.NoError(t, err)
	assert.Equal(t, ResultReady, res.Status)
	assert.Empty(t, res.Degraded)
	require.NotNil(t, res.Ratios.CurrentRatio)
	assert.InDelta(t, 2.0, *res.Ratios.CurrentRatio, 1e-9)

	view, err = h.engine.Status(ctx, "run-s")
	require.NoError(t, err)
	assert.Equal(t, 1, view.State.Source.Tables, "extract re-parsed the document")

	assert.Equal(t, []fin.Node{
		fin.NodeParse, fin.NodeExtract, fin.NodeValidate,
		fin.NodeReviewGate, fin.NodeRatios, fin.NodeDone,
	}, historyNodes(t, h.engine, "run-s"))
	assert.Equal(t, []EventType{EventContinued, EventCompleted}, h.events.types())
}

func TestResume_FailureAfterFeedbackKeepsCorrections(t *testing.T) {
	h, store := newFailingHarness(t, extract.Static{Result: imbalancedResult()})
	ctx := context.Background()

	res, err := h.engine.Start(ctx, StartRequest{RunID: "run-r", DocID: "doc-r", DocPath: h.docPath})
	require.NoError(t, err)
	require.Equal(t, ResultNeedsReview, res.Status)

	// apply_feedback commits; the checkpoint after validate fails.
	store.failNext(atNode(fin.NodeReviewGate))
	_, err = h.engine.Resume(ctx, "run-r", []Correction{
		{Path: "balance.shareholders_equity", NewValue: 40.0},
	})
	require.Error(t, err)
	assert.Equal(t, CodePersistence, CodeOf(err))

	view, err := h.engine.Status(ctx, "run-r")
	require.NoError(t, err)
	assert.Equal(t, fin.StatusRunning, view.State.Status)
	assert.Equal(t, fin.NodeValidate, view.State.Node)
	require.Len(t, view.State.Audit, 1)
	assert.Equal(t, 40.0, *view.State.Record.Balance.ShareholdersEquity)

	_, err = h.engine.Resume(ctx, "run-r", nil)
	assert.Equal(t, CodeNotAwaitingReview, CodeOf(err))

	res, err = h.engine.Continue(ctx, "run-r")
	require.NoError(t, err)
	require.Equal(t, ResultReady, res.Status)
	require.Len(t, res.Audit, 1)
	assert.Equal(t, "balance.shareholders_equity", res.Audit[0].Path)
	require.NotNil(t, res.Ratios.DebtToEquity)
	assert.InDelta(t, 1.5, *res.Ratios.DebtToEquity, 1e-9)

	_, err = h.engine.Continue(ctx, "run-r")
	assert.Equal(t, CodeNotStalled, CodeOf(err))
	assert.ErrorIs(t, err, ErrNotStalled)
}

func TestResume_FailureBeforeFeedbackKeepsRunSuspended(t *testing.T) {
	h, store := newFailingHarness(t, extract.Static{Result: imbalancedResult()})
	ctx := context.Background()

	_, err := h.engine.Start(ctx, StartRequest{RunID: "run-f", DocID: "doc-f", DocPath: h.docPath})
	require.NoError(t, err)

	store.failNext(atNode(fin.NodeValidate))
	_, err = h.engine.Resume(ctx, "run-f", []Correction{
		{Path: "balance.shareholders_equity", NewValue: 40.0},
	})
	require.Error(t, err)
	assert.Equal(t, CodePersistence, CodeOf(err))

	view, err := h.engine.Status(ctx, "run-f")
	require.NoError(t, err)
	assert.True(t, view.Interrupted)
	assert.Empty(t, view.State.Audit)

	_, err = h.engine.Continue(ctx, "run-f")
	assert.Equal(t, CodeNotStalled, CodeOf(err))

	res, err := h.engine.Resume(ctx, "run-f", []Correction{
		{Path: "balance.shareholders_equity", NewValue: 40.0},
	})
	require.NoError(t, err)
	assert.Equal(t, ResultReady, res.Status)
	assert.Len(t, res.Audit, 1)
}

func TestWhatIf_PersistenceFailureStoresNothing(t *testing.T) {
	h, store := newFailingHarness(t, extract.Static{Result: balancedResult()})
	ctx := context.Background()

	_, err := h.engine.Start(ctx, StartRequest{RunID: "run-w", DocID: "doc-w", DocPath: h.docPath})
	require.NoError(t, err)

	store.failNext(func(*fin.Run) bool { return true })
	_, err = h.engine.WhatIf(ctx, WhatIfRequest{
		RunID:    "run-w",
		Scenario: "stress",
		Changes:  []Change{{Path: "balance.total_liabilities", Factor: testutil.F(1.5)}},
	})
	require.Error(t, err)
	assert.Equal(t, CodePersistence, CodeOf(err))

	view, err := h.engine.Status(ctx, "run-w")
	require.NoError(t, err)
	assert.Empty(t, view.State.Audit)
	assert.Empty(t, view.State.Scenarios)
	assert.Equal(t, fin.StatusCompleted, view.State.Status)
}

func TestContinue_Rejections(t *testing.T) {
	h := newHarness(t, imbalancedResult())
	ctx := context.Background()

	_, err := h.engine.Continue(ctx, "missing")
	assert.Equal(t, CodeNoSuchRun, CodeOf(err))

	h.start(t, "run-c")
	_, err = h.engine.Continue(ctx, "run-c")
	assert.Equal(t, CodeNotStalled, CodeOf(err), "suspended runs go through Resume")
}

func TestStart_CancelledExtractionStallsInsteadOfDegrading(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	adapter := extract.AdapterFunc(func(ctx context.Context, _ extract.Request) (*extract.Result, error) {
		if calls.Add(1) == 1 {
			cancel()
			return nil, ctx.Err()
		}
		return balancedResult(), nil
	})
	h := newHarnessWithAdapter(t, adapter)

	_, err := h.engine.Start(ctx, StartRequest{RunID: "run-x", DocID: "doc-x", DocPath: h.docPath})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	view, err := h.engine.Status(context.Background(), "run-x")
	require.NoError(t, err)
	assert.Equal(t, fin.NodeExtract, view.State.Node)
	assert.NotContains(t, view.State.Degraded, fin.DegradedExtraction)

	res, err := h.engine.Continue(context.Background(), "run-x")
	require.NoError(t, err)
	assert.Equal(t, ResultReady, res.Status)
	assert.Empty(t, res.Degraded)
	assert.Equal(t, int32(2), calls.Load())
}
