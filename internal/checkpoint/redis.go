package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/finflow/internal/fin"
)

const defaultRedisPrefix = "finflow:"

var allStatuses = []fin.Status{fin.StatusRunning, fin.StatusAwaitingReview, fin.StatusCompleted}

// RedisStore keeps the latest snapshot of each run in a hash and the
// checkpoint history in a list. Runs are indexed in sorted sets scored by
// update time, one for all runs and one per status.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects using a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, defaultRedisPrefix), nil
}

// NewRedisStore wraps an existing client. Keys are namespaced by prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) runKey(id string) string     { return s.prefix + "run:" + id }
func (s *RedisStore) historyKey(id string) string { return s.prefix + "history:" + id }
func (s *RedisStore) indexKey() string            { return s.prefix + "runs" }
func (s *RedisStore) statusKey(st fin.Status) string {
	return s.prefix + "status:" + string(st)
}

func (s *RedisStore) Put(ctx context.Context, run *fin.Run) error {
	if err := validateRun(run); err != nil {
		return wrap("put", "", err)
	}
	payload, sum, err := encode(run)
	if err != nil {
		return wrap("put", run.RunID, err)
	}
	at := updatedAt(run)
	key := s.runKey(run.RunID)

	var seq int64
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "seq").Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != run.Version {
			return ErrConflict
		}
		seq = current + 1

		entry, err := json.Marshal(Checkpoint{
			RunID:     run.RunID,
			Seq:       seq,
			Node:      run.Node,
			Status:    run.Status,
			Checksum:  sum,
			CreatedAt: at,
		})
		if err != nil {
			return err
		}

		score := float64(at.UnixNano())
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]any{
				"seq":        seq,
				"doc_id":     run.DocID,
				"status":     string(run.Status),
				"node":       string(run.Node),
				"payload":    payload,
				"checksum":   sum,
				"updated_at": at.UnixNano(),
			})
			pipe.RPush(ctx, s.historyKey(run.RunID), entry)
			pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: score, Member: run.RunID})
			for _, st := range allStatuses {
				if st != run.Status {
					pipe.ZRem(ctx, s.statusKey(st), run.RunID)
				}
			}
			pipe.ZAdd(ctx, s.statusKey(run.Status), redis.Z{Score: score, Member: run.RunID})
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		err = ErrConflict
	}
	if err != nil {
		return wrap("put", run.RunID, err)
	}

	run.Version = seq
	return nil
}

func (s *RedisStore) Get(ctx context.Context, runID string) (*fin.Run, error) {
	vals, err := s.client.HMGet(ctx, s.runKey(runID), "seq", "payload", "checksum").Result()
	if err != nil {
		return nil, wrap("get", runID, err)
	}
	if vals[0] == nil {
		return nil, wrap("get", runID, ErrNoSuchRun)
	}

	seq, err := strconv.ParseInt(fmt.Sprint(vals[0]), 10, 64)
	if err != nil {
		return nil, wrap("get", runID, fmt.Errorf("%w: bad seq", ErrCorruptSnapshot))
	}
	payload, _ := vals[1].(string)
	sum, _ := vals[2].(string)

	run, err := decode([]byte(payload), sum, seq)
	return run, wrap("get", runID, err)
}

func (s *RedisStore) List(ctx context.Context, filter ListFilter) ([]fin.RunSummary, error) {
	index := s.indexKey()
	if filter.Status != "" {
		index = s.statusKey(filter.Status)
	}
	ids, err := s.client.ZRevRange(ctx, index, 0, int64(filter.limit()-1)).Result()
	if err != nil {
		return nil, wrap("list", "", err)
	}

	cmds := make([]*redis.SliceCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HMGet(ctx, s.runKey(id), "doc_id", "status", "node", "seq", "updated_at")
		}
		return nil
	})
	if err != nil {
		return nil, wrap("list", "", err)
	}

	out := make([]fin.RunSummary, 0, len(ids))
	for i, cmd := range cmds {
		v := cmd.Val()
		if len(v) < 5 || v[3] == nil {
			continue
		}
		seq, _ := strconv.ParseInt(fmt.Sprint(v[3]), 10, 64)
		updated, _ := strconv.ParseInt(fmt.Sprint(v[4]), 10, 64)
		out = append(out, fin.RunSummary{
			RunID:     ids[i],
			DocID:     fmt.Sprint(v[0]),
			Status:    fin.Status(fmt.Sprint(v[1])),
			Node:      fin.Node(fmt.Sprint(v[2])),
			Version:   seq,
			UpdatedAt: time.Unix(0, updated).UTC(),
		})
	}
	sortSummaries(out)
	return out, nil
}

func (s *RedisStore) History(ctx context.Context, runID string) ([]Checkpoint, error) {
	raw, err := s.client.LRange(ctx, s.historyKey(runID), 0, -1).Result()
	if err != nil {
		return nil, wrap("history", runID, err)
	}
	if len(raw) == 0 {
		return nil, wrap("history", runID, ErrNoSuchRun)
	}
	out := make([]Checkpoint, 0, len(raw))
	for _, r := range raw {
		var cp Checkpoint
		if err := json.Unmarshal([]byte(r), &cp); err != nil {
			return nil, wrap("history", runID, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err))
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
