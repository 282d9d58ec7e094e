package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nodebase/engine/pkg/api"
	"github.com/nodebase/engine/pkg/log"
)

// runExecution drives one workflow run from its checkpoint to suspension or
// a terminal status. It is re-entered by Resume after sleeps and retry
// backoff, replaying completed steps from the memo store
func (e *Engine) runExecution(id api.ExecutionID) {
	ctx := e.ctx

	exec, err := e.store.GetExecution(ctx, id)
	if err != nil {
		slog.Error("Execution load failed",
			log.ExecutionID(id), log.Error(err))
		return
	}
	if exec.Status.Terminal() {
		return
	}

	cp, err := e.store.LoadCheckpoint(ctx, id)
	if err != nil {
		slog.Error("Checkpoint load failed",
			log.ExecutionID(id), log.Error(err))
		return
	}

	wf, err := e.store.LoadWorkflow(ctx, cp.WorkflowID)
	if err != nil {
		e.finalizeFailure(ctx, exec, api.TransientErr(err))
		return
	}
	g, err := NewGraph(wf)
	if err != nil {
		e.finalizeFailure(ctx, exec, api.ConfigErr("%w", err))
		return
	}

	if exec.Status == api.ExecutionPending {
		exec.Status = api.ExecutionRunning
		if err := e.store.UpdateExecution(ctx, exec); err != nil {
			slog.Error("Execution update failed",
				log.ExecutionID(id), log.Error(err))
			return
		}
	}

	if cp.CurrentNodeID == "" {
		cp.CurrentNodeID = g.Trigger().ID
	}
	if cp.UserID == "" {
		cp.UserID = wf.UserID
	}

	for {
		if cp.StepCount >= e.cfg.MaxSteps {
			e.finalizeFailure(ctx, exec, api.StepBoundErr(e.cfg.MaxSteps))
			return
		}

		node := g.Node(cp.CurrentNodeID)
		if node == nil {
			e.finalizeFailure(ctx, exec,
				api.ConfigErr("node not found: %s", cp.CurrentNodeID))
			return
		}

		out, err := e.executeNode(ctx, node, cp)
		switch {
		case errors.Is(err, api.ErrSuspended):
			if err := e.store.SaveCheckpoint(ctx, cp); err != nil {
				slog.Error("Checkpoint save failed",
					log.ExecutionID(id), log.Error(err))
			}
			return
		case err != nil:
			e.handleNodeFailure(ctx, exec, cp, node, err)
			return
		}

		branch := out.Branch()
		cp.Context = cp.Context.Merge(out)
		cp.StepCount++
		cp.Attempt = 0

		next := g.Next(node.ID, branch)
		if next == "" {
			e.finalizeSuccess(ctx, exec, cp.Context)
			return
		}
		cp.CurrentNodeID = next
		if err := e.store.SaveCheckpoint(ctx, cp); err != nil {
			e.finalizeFailure(ctx, exec, api.TransientErr(err))
			return
		}
	}
}

func (e *Engine) executeNode(
	ctx context.Context, node *api.Node, cp *api.Checkpoint,
) (api.Context, error) {
	executor, err := e.registry.Lookup(node.Type)
	if err != nil {
		return nil, err
	}
	req := &api.ExecuteRequest{
		Config:  node.Config,
		NodeID:  node.ID,
		UserID:  cp.UserID,
		Context: cp.Context,
		Steps:   e.newStepRunner(cp.ExecutionID),
		Status:  e.hub.ForNode(node.Type),
	}
	return executor.Execute(ctx, req)
}

// handleNodeFailure applies the retry policy. Retriable failures back off
// and re-enter the run through the scheduler; everything else is terminal
func (e *Engine) handleNodeFailure(
	ctx context.Context, exec *api.Execution, cp *api.Checkpoint,
	node *api.Node, cause error,
) {
	if !api.Retriable(cause) || cp.Attempt >= e.cfg.Retry.MaxRetries {
		e.finalizeFailure(ctx, exec, cause)
		return
	}

	cp.Attempt++
	if err := e.store.SaveCheckpoint(ctx, cp); err != nil {
		e.finalizeFailure(ctx, exec, api.TransientErr(err))
		return
	}

	wake := e.Now().Add(e.cfg.Retry.Backoff(cp.Attempt))
	slog.Warn("Node failed, retrying",
		log.ExecutionID(exec.ID),
		log.NodeID(node.ID),
		slog.Int("attempt", cp.Attempt),
		slog.Time("next_attempt", wake),
		log.Error(cause))

	execID := exec.ID
	e.scheduleTask(
		[]string{"retry", string(execID)}, wake,
		func() error {
			e.Resume(execID)
			return nil
		},
	)
}

func (e *Engine) finalizeSuccess(
	ctx context.Context, exec *api.Execution, output api.Context,
) {
	exec.Status = api.ExecutionSuccess
	exec.CompletedAt = e.Now()
	exec.Output = output
	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		slog.Error("Execution update failed",
			log.ExecutionID(exec.ID), log.Error(err))
		return
	}
	slog.Info("Execution succeeded", log.ExecutionID(exec.ID))
	e.clearPending(ctx, exec.ID)
	e.archive(ctx, exec)
}

func (e *Engine) finalizeFailure(
	ctx context.Context, exec *api.Execution, cause error,
) {
	exec.Status = api.ExecutionFailed
	exec.CompletedAt = e.Now()
	exec.Error = cause.Error()
	exec.ErrorStack = api.StackOf(cause)
	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		slog.Error("Execution update failed",
			log.ExecutionID(exec.ID), log.Error(err))
		return
	}
	slog.Error("Execution failed",
		log.ExecutionID(exec.ID), log.Error(cause))
	e.clearPending(ctx, exec.ID)
	e.archive(ctx, exec)
}

func (e *Engine) clearPending(ctx context.Context, id api.ExecutionID) {
	if err := e.store.PendingRemove(ctx, id); err != nil {
		slog.Warn("Pending index update failed",
			log.ExecutionID(id), log.Error(err))
	}
}

func (e *Engine) archive(ctx context.Context, exec *api.Execution) {
	if e.archiver == nil {
		return
	}
	if err := e.archiver.Archive(ctx, exec); err != nil {
		slog.Warn("Execution archive failed",
			log.ExecutionID(exec.ID), log.Error(err))
	}
}
