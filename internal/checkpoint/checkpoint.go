package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/finflow/internal/fin"
)

var (
	// ErrNoSuchRun is returned when no checkpoint exists for a run ID.
	ErrNoSuchRun = errors.New("no such run")

	// ErrConflict is returned when Put carries a stale Version.
	ErrConflict = errors.New("checkpoint version conflict")

	// ErrCorruptSnapshot is returned when a stored payload fails its checksum.
	ErrCorruptSnapshot = errors.New("corrupt checkpoint snapshot")
)

// Store persists workflow runs.
type Store interface {
	// Put writes run as the new latest snapshot. run.Version must equal the
	// version last read (0 for a new run); on success it is advanced to the
	// new checkpoint sequence.
	Put(ctx context.Context, run *fin.Run) error

	// Get returns the latest snapshot, or ErrNoSuchRun.
	Get(ctx context.Context, runID string) (*fin.Run, error)

	// List returns run summaries, most recently updated first.
	List(ctx context.Context, filter ListFilter) ([]fin.RunSummary, error)

	// History returns checkpoint metadata for a run in sequence order.
	History(ctx context.Context, runID string) ([]Checkpoint, error)

	Close() error
}

// ListFilter narrows List. Zero values match everything; Limit <= 0 means
// DefaultListLimit.
type ListFilter struct {
	Status fin.Status
	Limit  int
}

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Checkpoint is one entry of a run's history.
type Checkpoint struct {
	RunID     string     `json:"run_id"`
	Seq       int64      `json:"seq"`
	Node      fin.Node   `json:"node"`
	Status    fin.Status `json:"status"`
	Checksum  string     `json:"checksum"`
	CreatedAt time.Time  `json:"created_at"`
}

// PersistenceError wraps a backend failure with the operation and run.
type PersistenceError struct {
	Op    string
	RunID string
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("checkpoint %s %s: %v", e.Op, e.RunID, e.Err)
	}
	return fmt.Sprintf("checkpoint %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func wrap(op, runID string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, RunID: runID, Err: err}
}

// IsNoSuchRun reports whether err means the run does not exist.
func IsNoSuchRun(err error) bool {
	return errors.Is(err, ErrNoSuchRun)
}

// IsConflict reports whether err is a version conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Open returns a store for the named driver: sqlite, postgres, redis or memory.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (Store, error) {
	switch driver {
	case "", "sqlite":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn, logger)
	case "redis":
		return OpenRedis(ctx, dsn)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint driver %q", driver)
	}
}

// domainSnapshot separates snapshot checksums from any other hash use.
const domainSnapshot = "finflow/checkpoint/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data), hex encoded.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// encode serializes run and its checksum.
func encode(run *fin.Run) ([]byte, string, error) {
	payload, err := json.Marshal(run)
	if err != nil {
		return nil, "", fmt.Errorf("marshal run: %w", err)
	}
	return payload, hashWithDomain(domainSnapshot, payload), nil
}

// decode verifies the checksum and rebuilds the run at version seq.
func decode(payload []byte, sum string, seq int64) (*fin.Run, error) {
	if hashWithDomain(domainSnapshot, payload) != sum {
		return nil, ErrCorruptSnapshot
	}
	var run fin.Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	run.Version = seq
	return &run, nil
}

func validateRun(run *fin.Run) error {
	if run == nil {
		return errors.New("nil run")
	}
	if run.RunID == "" {
		return errors.New("run id is required")
	}
	if run.Version < 0 {
		return fmt.Errorf("negative version %d", run.Version)
	}
	return nil
}

func updatedAt(run *fin.Run) time.Time {
	if run.UpdatedAt.IsZero() {
		return time.Now().UTC()
	}
	return run.UpdatedAt.UTC()
}
