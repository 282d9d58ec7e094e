package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nodebase/engine/internal/store"
	"github.com/nodebase/engine/pkg/api"
)

// stepRunner is the per-run implementation of api.StepRunner. Results are
// memoized by (executionID, key) in the store; sleeps persist a wake
// record and register a one-shot scheduler task that resumes the run
type stepRunner struct {
	engine *Engine
	execID api.ExecutionID
}

var _ api.StepRunner = (*stepRunner)(nil)

func (e *Engine) newStepRunner(execID api.ExecutionID) *stepRunner {
	return &stepRunner{
		engine: e,
		execID: execID,
	}
}

// Run executes fn at most once per key for this execution. A replay
// returns the recorded result without re-invoking fn; the recorded value
// round-trips through JSON, so replays observe JSON-typed values.
// Failures propagate unmemoized so a later replay may retry the same key
func (r *stepRunner) Run(
	ctx context.Context, key string, fn func(context.Context) (any, error),
) (any, error) {
	data, ok, err := r.engine.store.MemoGet(ctx, r.execID, key)
	if err != nil {
		return nil, api.TransientErr(err)
	}
	if ok {
		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, api.TransientErr(err)
		}
		return value, nil
	}

	value, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.engine.store.MemoPut(ctx, r.execID, key, value); err != nil {
		return nil, api.TransientErr(err)
	}
	return value, nil
}

// Sleep suspends the run for the duration, measured from first
// registration
func (r *stepRunner) Sleep(
	ctx context.Context, key string, d time.Duration,
) error {
	return r.SleepUntil(ctx, key, r.engine.Now().Add(d))
}

// SleepUntil suspends the run until the timestamp. The first call records
// the wake time, schedules the wake task, and returns ErrSuspended; the
// replay after the timer matures finds the completed record and proceeds.
// Resumption is exactly-once per key
func (r *stepRunner) SleepUntil(
	ctx context.Context, key string, at time.Time,
) error {
	state, err := r.engine.store.SleepGet(ctx, r.execID, key)
	if err != nil {
		return api.TransientErr(err)
	}
	if state != nil && state.Done {
		return nil
	}

	wake := at
	if state != nil {
		wake = state.WakeAt
	}

	if !r.engine.Now().Before(wake) {
		if err := r.markSleepDone(ctx, key, wake); err != nil {
			return err
		}
		return nil
	}

	if state == nil {
		put := &store.SleepState{WakeAt: wake}
		if err := r.engine.store.SleepPut(
			ctx, r.execID, key, put,
		); err != nil {
			return api.TransientErr(err)
		}
	}

	execID, k := r.execID, key
	r.engine.scheduleTask(
		[]string{"sleep", string(execID), k}, wake,
		func() error {
			ctx := context.Background()
			if err := r.markSleepDone(ctx, k, wake); err != nil {
				return err
			}
			r.engine.Resume(execID)
			return nil
		},
	)
	return api.ErrSuspended
}

func (r *stepRunner) markSleepDone(
	ctx context.Context, key string, wake time.Time,
) error {
	state := &store.SleepState{WakeAt: wake, Done: true}
	if err := r.engine.store.SleepPut(
		ctx, r.execID, key, state,
	); err != nil {
		return api.TransientErr(err)
	}
	return nil
}
