package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nodebase/engine/internal/store"
	"github.com/nodebase/engine/pkg/api"
	"github.com/nodebase/engine/pkg/log"
)

// recoverPending re-arms every run that was in flight when the process
// last stopped. Wake and retry tasks live only in the in-process
// scheduler, so a restart rebuilds them from the durable sleep records
// and checkpoints
func (e *Engine) recoverPending() {
	ctx := e.ctx

	ids, err := e.store.ListPending(ctx)
	if err != nil {
		slog.Error("Pending index scan failed", log.Error(err))
		return
	}

	for _, id := range ids {
		exec, err := e.store.GetExecution(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrExecutionNotFound) {
				e.clearPending(ctx, id)
				continue
			}
			slog.Error("Execution load failed",
				log.ExecutionID(id), log.Error(err))
			continue
		}
		if exec.Status.Terminal() {
			e.clearPending(ctx, id)
			continue
		}
		e.recoverExecution(ctx, id)
	}
}

// recoverExecution restores the scheduler state of one non-terminal run.
// An unfinished sleep gets its wake timer back at the recorded wake time;
// a run awaiting a retry re-enters backoff from its checkpointed attempt;
// anything else was cut off mid-walk and resumes immediately
func (e *Engine) recoverExecution(
	ctx context.Context, id api.ExecutionID,
) {
	sleeps, err := e.store.ListSleeps(ctx, id)
	if err != nil {
		slog.Error("Sleep state load failed",
			log.ExecutionID(id), log.Error(err))
		return
	}

	r := e.newStepRunner(id)
	rearmed := false
	for key, state := range sleeps {
		if state.Done {
			continue
		}
		key, wake := key, state.WakeAt
		e.scheduleTask(
			[]string{"sleep", string(id), key}, wake,
			func() error {
				ctx := context.Background()
				if err := r.markSleepDone(ctx, key, wake); err != nil {
					return err
				}
				e.Resume(id)
				return nil
			},
		)
		rearmed = true
	}
	if rearmed {
		slog.Info("Sleep timer re-armed", log.ExecutionID(id))
		return
	}

	cp, err := e.store.LoadCheckpoint(ctx, id)
	if err != nil {
		slog.Error("Checkpoint load failed",
			log.ExecutionID(id), log.Error(err))
		return
	}
	if cp.Attempt > 0 {
		wake := e.Now().Add(e.cfg.Retry.Backoff(cp.Attempt))
		e.scheduleTask(
			[]string{"retry", string(id)}, wake,
			func() error {
				e.Resume(id)
				return nil
			},
		)
		slog.Info("Retry timer re-armed",
			log.ExecutionID(id),
			slog.Int("attempt", cp.Attempt))
		return
	}

	slog.Info("Resuming interrupted run", log.ExecutionID(id))
	e.Resume(id)
}
