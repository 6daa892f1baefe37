package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/finflow/internal/fin"
)

// sqlStore implements Store over database/sql. SQLite and Postgres share it;
// queries are written with '?' and rebound for drivers that need $n.
type sqlStore struct {
	db     *sql.DB
	dollar bool
}

func (s *sqlStore) q(query string) string {
	if !s.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) Put(ctx context.Context, run *fin.Run) error {
	if err := validateRun(run); err != nil {
		return wrap("put", "", err)
	}
	payload, sum, err := encode(run)
	if err != nil {
		return wrap("put", run.RunID, err)
	}
	at := updatedAt(run).UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("put", run.RunID, fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	var seq int64
	if run.Version == 0 {
		err = tx.QueryRowContext(ctx, s.q(`
			INSERT INTO runs (run_id, doc_id, status, node, latest_seq, created_at, updated_at)
			VALUES (?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT (run_id) DO NOTHING
			RETURNING latest_seq
		`), run.RunID, run.DocID, string(run.Status), string(run.Node), at, at).Scan(&seq)
	} else {
		err = tx.QueryRowContext(ctx, s.q(`
			UPDATE runs
			SET latest_seq = latest_seq + 1, doc_id = ?, status = ?, node = ?, updated_at = ?
			WHERE run_id = ? AND latest_seq = ?
			RETURNING latest_seq
		`), run.DocID, string(run.Status), string(run.Node), at, run.RunID, run.Version).Scan(&seq)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return wrap("put", run.RunID, ErrConflict)
	}
	if err != nil {
		return wrap("put", run.RunID, fmt.Errorf("advance run: %w", err))
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO checkpoints (run_id, seq, node, status, payload, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), run.RunID, seq, string(run.Node), string(run.Status), payload, sum, at)
	if err != nil {
		return wrap("put", run.RunID, fmt.Errorf("write checkpoint: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return wrap("put", run.RunID, fmt.Errorf("commit: %w", err))
	}
	run.Version = seq
	return nil
}

func (s *sqlStore) Get(ctx context.Context, runID string) (*fin.Run, error) {
	var (
		seq     int64
		payload []byte
		sum     string
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT c.seq, c.payload, c.checksum
		FROM runs r
		JOIN checkpoints c ON c.run_id = r.run_id AND c.seq = r.latest_seq
		WHERE r.run_id = ?
	`), runID).Scan(&seq, &payload, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("get", runID, ErrNoSuchRun)
	}
	if err != nil {
		return nil, wrap("get", runID, err)
	}

	run, err := decode(payload, sum, seq)
	return run, wrap("get", runID, err)
}

func (s *sqlStore) List(ctx context.Context, filter ListFilter) ([]fin.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT run_id, doc_id, status, node, latest_seq, updated_at
		FROM runs
		WHERE ? = '' OR status = ?
		ORDER BY updated_at DESC, run_id
		LIMIT ?
	`), string(filter.Status), string(filter.Status), filter.limit())
	if err != nil {
		return nil, wrap("list", "", err)
	}
	defer rows.Close()

	out := []fin.RunSummary{}
	for rows.Next() {
		var (
			sm      fin.RunSummary
			status  string
			node    string
			updated int64
		)
		if err := rows.Scan(&sm.RunID, &sm.DocID, &status, &node, &sm.Version, &updated); err != nil {
			return nil, wrap("list", "", err)
		}
		sm.Status = fin.Status(status)
		sm.Node = fin.Node(node)
		sm.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, sm)
	}
	return out, wrap("list", "", rows.Err())
}

func (s *sqlStore) History(ctx context.Context, runID string) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT seq, node, status, checksum, created_at
		FROM checkpoints
		WHERE run_id = ?
		ORDER BY seq
	`), runID)
	if err != nil {
		return nil, wrap("history", runID, err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var (
			cp      = Checkpoint{RunID: runID}
			node    string
			status  string
			created int64
		)
		if err := rows.Scan(&cp.Seq, &node, &status, &cp.Checksum, &created); err != nil {
			return nil, wrap("history", runID, err)
		}
		cp.Node = fin.Node(node)
		cp.Status = fin.Status(status)
		cp.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("history", runID, err)
	}
	if len(out) == 0 {
		return nil, wrap("history", runID, ErrNoSuchRun)
	}
	return out, nil
}

func (s *sqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
