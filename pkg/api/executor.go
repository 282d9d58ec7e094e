package api

import (
	"context"
	"time"
)

type (
	// StepRunner provides durable, replay-safe primitives to executors.
	// All side effects must be routed through Run so a replayed execution
	// performs each logical step at most once
	StepRunner interface {
		// Run executes fn and memoizes its result keyed by the current
		// execution and key. A replay returns the recorded result without
		// re-invoking fn. Failures propagate unmemoized
		Run(
			ctx context.Context, key string, fn func(context.Context) (any, error),
		) (any, error)

		// Sleep suspends the run's forward progress for the duration
		// without holding compute. Returns ErrSuspended until the timer
		// matures, then nil on replay
		Sleep(ctx context.Context, key string, d time.Duration) error

		// SleepUntil suspends the run's forward progress until the
		// timestamp, with the same contract as Sleep
		SleepUntil(ctx context.Context, key string, at time.Time) error
	}

	// StatusPublisher emits per-node lifecycle events. Publication is
	// best-effort: delivery failures are logged, never propagated
	StatusPublisher interface {
		Status(nodeID NodeID, status NodeStatus)
	}

	// ExecuteRequest carries everything an executor needs for one node
	// invocation
	ExecuteRequest struct {
		Config  NodeConfig
		NodeID  NodeID
		UserID  string
		Context Context
		Steps   StepRunner
		Status  StatusPublisher
	}

	// Executor implements one node type's behavior. It returns a new
	// context value or fails with a tagged error. Contract: publish
	// loading before doing work and exactly one terminal status before
	// returning; classify configuration failures as non-retriable
	Executor interface {
		Execute(ctx context.Context, req *ExecuteRequest) (Context, error)
	}

	// ExecutorFunc adapts a function to the Executor interface
	ExecutorFunc func(ctx context.Context, req *ExecuteRequest) (Context, error)
)

// Execute calls the wrapped function
func (f ExecutorFunc) Execute(
	ctx context.Context, req *ExecuteRequest,
) (Context, error) {
	return f(ctx, req)
}
