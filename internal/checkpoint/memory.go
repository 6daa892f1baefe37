package checkpoint

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/finflow/internal/fin"
)

type memEntry struct {
	payload  []byte
	checksum string
	summary  fin.RunSummary
	history  []Checkpoint
}

// MemoryStore keeps encoded snapshots in process memory. Snapshots are
// stored serialized so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*memEntry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*memEntry)}
}

func (s *MemoryStore) Put(ctx context.Context, run *fin.Run) error {
	if err := validateRun(run); err != nil {
		return wrap("put", "", err)
	}
	if err := ctx.Err(); err != nil {
		return wrap("put", run.RunID, err)
	}
	payload, sum, err := encode(run)
	if err != nil {
		return wrap("put", run.RunID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.runs[run.RunID]
	var current int64
	if ok {
		current = e.summary.Version
	}
	if current != run.Version {
		return wrap("put", run.RunID, ErrConflict)
	}
	if !ok {
		e = &memEntry{}
		s.runs[run.RunID] = e
	}

	seq := current + 1
	at := updatedAt(run)
	e.payload = payload
	e.checksum = sum
	e.summary = run.Summary()
	e.summary.Version = seq
	e.summary.UpdatedAt = at
	e.history = append(e.history, Checkpoint{
		RunID:     run.RunID,
		Seq:       seq,
		Node:      run.Node,
		Status:    run.Status,
		Checksum:  sum,
		CreatedAt: at,
	})

	run.Version = seq
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, runID string) (*fin.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("get", runID, err)
	}
	s.mu.RLock()
	e, ok := s.runs[runID]
	if !ok {
		s.mu.RUnlock()
		return nil, wrap("get", runID, ErrNoSuchRun)
	}
	payload, sum, seq := e.payload, e.checksum, e.summary.Version
	s.mu.RUnlock()

	run, err := decode(payload, sum, seq)
	return run, wrap("get", runID, err)
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]fin.RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("list", "", err)
	}
	s.mu.RLock()
	out := make([]fin.RunSummary, 0, len(s.runs))
	for _, e := range s.runs {
		if filter.Status != "" && e.summary.Status != filter.Status {
			continue
		}
		out = append(out, e.summary)
	}
	s.mu.RUnlock()

	sortSummaries(out)
	if len(out) > filter.limit() {
		out = out[:filter.limit()]
	}
	return out, nil
}

func (s *MemoryStore) History(ctx context.Context, runID string) ([]Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("history", runID, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.runs[runID]
	if !ok {
		return nil, wrap("history", runID, ErrNoSuchRun)
	}
	out := make([]Checkpoint, len(e.history))
	copy(out, e.history)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// corrupt flips a payload byte. Used by tests.
func (s *MemoryStore) corrupt(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.runs[runID]; ok && len(e.payload) > 0 {
		e.payload[len(e.payload)/2] ^= 0xff
	}
}

// sortSummaries orders by UpdatedAt descending, then RunID.
func sortSummaries(out []fin.RunSummary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].RunID < out[j].RunID
	})
}

var _ Store = (*MemoryStore)(nil)
