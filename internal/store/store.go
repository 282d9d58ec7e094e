// Package store implements the Redis-backed persistence collaborator
//
// This package owns the durable records of the engine: workflow graphs,
// execution rows, walk checkpoints, durable step memoization, and sleep
// state
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nodebase/engine/internal/config"
	"github.com/nodebase/engine/pkg/api"
)

type (
	// RedisStore persists engine state in Redis under a key prefix
	RedisStore struct {
		client *redis.Client
		prefix string
	}

	// SleepState tracks a durable sleep registered by a step runner
	SleepState struct {
		WakeAt time.Time `json:"wake_at"`
		Done   bool      `json:"done"`
	}
)

var (
	ErrWorkflowNotFound   = errors.New("workflow not found")
	ErrExecutionNotFound  = errors.New("execution not found")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// New creates a Redis store from connection settings
func New(cfg config.RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
	}
}

// Ping verifies the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// SaveWorkflow stores a workflow graph
func (s *RedisStore) SaveWorkflow(
	ctx context.Context, wf *api.Workflow,
) error {
	return s.setJSON(ctx, s.workflowKey(wf.ID), wf)
}

// LoadWorkflow retrieves a workflow graph by ID
func (s *RedisStore) LoadWorkflow(
	ctx context.Context, id api.WorkflowID,
) (*api.Workflow, error) {
	var wf api.Workflow
	if err := s.getJSON(ctx, s.workflowKey(id), &wf); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
		}
		return nil, err
	}
	return &wf, nil
}

// CreateExecution stores a new execution row and indexes it under its
// workflow
func (s *RedisStore) CreateExecution(
	ctx context.Context, exec *api.Execution,
) error {
	if err := s.setJSON(ctx, s.executionKey(exec.ID), exec); err != nil {
		return err
	}
	return s.client.RPush(
		ctx, s.executionIndexKey(exec.WorkflowID), string(exec.ID),
	).Err()
}

// UpdateExecution overwrites an execution row
func (s *RedisStore) UpdateExecution(
	ctx context.Context, exec *api.Execution,
) error {
	return s.setJSON(ctx, s.executionKey(exec.ID), exec)
}

// GetExecution retrieves an execution row by ID
func (s *RedisStore) GetExecution(
	ctx context.Context, id api.ExecutionID,
) (*api.Execution, error) {
	var exec api.Execution
	if err := s.getJSON(ctx, s.executionKey(id), &exec); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
		}
		return nil, err
	}
	return &exec, nil
}

// ListExecutions returns all execution rows recorded for a workflow, most
// recent first
func (s *RedisStore) ListExecutions(
	ctx context.Context, id api.WorkflowID,
) ([]*api.Execution, error) {
	ids, err := s.client.LRange(
		ctx, s.executionIndexKey(id), 0, -1,
	).Result()
	if err != nil {
		return nil, err
	}

	execs := make([]*api.Execution, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		exec, err := s.GetExecution(ctx, api.ExecutionID(ids[i]))
		if err != nil {
			if errors.Is(err, ErrExecutionNotFound) {
				continue
			}
			return nil, err
		}
		execs = append(execs, exec)
	}
	return execs, nil
}

// PendingAdd indexes an execution as awaiting completion. The index is
// what restart recovery scans to re-arm suspended runs
func (s *RedisStore) PendingAdd(
	ctx context.Context, id api.ExecutionID,
) error {
	return s.client.SAdd(ctx, s.pendingKey(), string(id)).Err()
}

// PendingRemove drops an execution from the pending index
func (s *RedisStore) PendingRemove(
	ctx context.Context, id api.ExecutionID,
) error {
	return s.client.SRem(ctx, s.pendingKey(), string(id)).Err()
}

// ListPending returns the executions awaiting completion
func (s *RedisStore) ListPending(
	ctx context.Context,
) ([]api.ExecutionID, error) {
	members, err := s.client.SMembers(ctx, s.pendingKey()).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]api.ExecutionID, len(members))
	for i, m := range members {
		ids[i] = api.ExecutionID(m)
	}
	return ids, nil
}

// SaveCheckpoint persists the walk state of a run
func (s *RedisStore) SaveCheckpoint(
	ctx context.Context, cp *api.Checkpoint,
) error {
	return s.setJSON(ctx, s.checkpointKey(cp.ExecutionID), cp)
}

// LoadCheckpoint retrieves the walk state of a run
func (s *RedisStore) LoadCheckpoint(
	ctx context.Context, id api.ExecutionID,
) (*api.Checkpoint, error) {
	var cp api.Checkpoint
	if err := s.getJSON(ctx, s.checkpointKey(id), &cp); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
		}
		return nil, err
	}
	return &cp, nil
}

// MemoGet retrieves a memoized step result for an execution
func (s *RedisStore) MemoGet(
	ctx context.Context, id api.ExecutionID, key string,
) (json.RawMessage, bool, error) {
	data, err := s.client.HGet(ctx, s.memoKey(id), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// MemoPut records a step result so a replay of the same execution returns
// it without re-running the effect
func (s *RedisStore) MemoPut(
	ctx context.Context, id api.ExecutionID, key string, value any,
) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.memoKey(id), key, data).Err()
}

// SleepGet retrieves the sleep state recorded under a step key
func (s *RedisStore) SleepGet(
	ctx context.Context, id api.ExecutionID, key string,
) (*SleepState, error) {
	data, err := s.client.HGet(ctx, s.sleepKey(id), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var state SleepState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ListSleeps returns all sleep states recorded for an execution by step
// key
func (s *RedisStore) ListSleeps(
	ctx context.Context, id api.ExecutionID,
) (map[string]*SleepState, error) {
	entries, err := s.client.HGetAll(ctx, s.sleepKey(id)).Result()
	if err != nil {
		return nil, err
	}

	sleeps := make(map[string]*SleepState, len(entries))
	for key, data := range entries {
		var state SleepState
		if err := json.Unmarshal([]byte(data), &state); err != nil {
			return nil, err
		}
		sleeps[key] = &state
	}
	return sleeps, nil
}

// SleepPut records or updates the sleep state under a step key
func (s *RedisStore) SleepPut(
	ctx context.Context, id api.ExecutionID, key string, state *SleepState,
) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.sleepKey(id), key, data).Err()
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *RedisStore) workflowKey(id api.WorkflowID) string {
	return fmt.Sprintf("%s:wf:%s", s.prefix, id)
}

func (s *RedisStore) executionKey(id api.ExecutionID) string {
	return fmt.Sprintf("%s:exec:%s", s.prefix, id)
}

func (s *RedisStore) executionIndexKey(id api.WorkflowID) string {
	return fmt.Sprintf("%s:wf:%s:execs", s.prefix, id)
}

func (s *RedisStore) checkpointKey(id api.ExecutionID) string {
	return fmt.Sprintf("%s:exec:%s:checkpoint", s.prefix, id)
}

func (s *RedisStore) memoKey(id api.ExecutionID) string {
	return fmt.Sprintf("%s:exec:%s:memo", s.prefix, id)
}

func (s *RedisStore) sleepKey(id api.ExecutionID) string {
	return fmt.Sprintf("%s:exec:%s:sleep", s.prefix, id)
}

func (s *RedisStore) pendingKey() string {
	return fmt.Sprintf("%s:pending", s.prefix)
}
