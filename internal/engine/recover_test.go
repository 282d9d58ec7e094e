package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/nodebase/engine/internal/assert"
	"github.com/nodebase/engine/internal/config"
	"github.com/nodebase/engine/internal/engine"
	"github.com/nodebase/engine/internal/status"
	"github.com/nodebase/engine/internal/store"
	"github.com/nodebase/engine/pkg/api"
)

type restartEnv struct {
	as       *assert.Wrapper
	store    *store.RedisStore
	registry *engine.Registry
	hub      *status.Hub
	cfg      *config.Config
	now      time.Time
}

func withRestartEnv(t *testing.T, fn func(*restartEnv)) {
	t.Helper()

	mr := miniredis.RunT(t)
	st := store.New(config.RedisConfig{
		Addr:   mr.Addr(),
		Prefix: "test",
	})
	defer func() { _ = st.Close() }()

	cfg := config.NewDefaultConfig()
	cfg.MaxSteps = 10

	hub := status.NewHub()
	defer hub.Close()

	fn(&restartEnv{
		as:       assert.New(t),
		store:    st,
		registry: engine.NewRegistry(),
		hub:      hub,
		cfg:      cfg,
		now:      time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC),
	})
}

// newEngine boots a fresh engine over the shared store, standing in for
// one process lifetime
func (env *restartEnv) newEngine() (*engine.Engine, *envTimer) {
	tc := &envTimerConstructor{created: make(chan *envTimer, 1)}
	eng := engine.New(env.cfg, engine.Dependencies{
		Store:     env.store,
		Hub:       env.hub,
		Registry:  env.registry,
		Clock:     func() time.Time { return env.now },
		MakeTimer: tc.NewTimer,
	})
	eng.Start()
	return eng, tc.WaitTimer(env.as.T)
}

func (env *restartEnv) waitForStatus(
	id api.ExecutionID, expected api.ExecutionStatus,
) *api.Execution {
	env.as.Helper()
	var exec *api.Execution
	env.as.Eventually(func() bool {
		var err error
		exec, err = env.store.GetExecution(context.Background(), id)
		return err == nil && exec.Status == expected
	}, runWaitTimeout, 10*time.Millisecond)
	return exec
}

func TestRestartRearmsSuspendedSleep(t *testing.T) {
	withRestartEnv(t, func(env *restartEnv) {
		var invocations atomic.Int32

		env.registry.Register(api.NodeManualTrigger, api.ExecutorFunc(func(
			_ context.Context, _ *api.ExecuteRequest,
		) (api.Context, error) {
			return api.Context{}, nil
		}))
		env.registry.Register(api.NodeHTTPRequest, api.ExecutorFunc(func(
			ctx context.Context, req *api.ExecuteRequest,
		) (api.Context, error) {
			invocations.Add(1)
			if err := req.Steps.Sleep(
				ctx, "wait", time.Hour,
			); err != nil {
				return nil, err
			}
			return api.Context{"woke": true}, nil
		}))

		env.as.NoError(env.store.SaveWorkflow(
			context.Background(), simpleWorkflow("wf-restart-sleep"),
		))

		eng, timer := env.newEngine()
		execID, err := eng.Trigger(
			context.Background(), api.TriggerEvent{
				WorkflowID: "wf-restart-sleep",
			},
		)
		env.as.NoError(err)

		delay := timer.WaitReset(env.as.T)
		env.as.Equal(time.Hour, delay)
		env.waitForStatus(execID, api.ExecutionRunning)

		// the process dies with the run suspended; only the durable
		// records in the store survive
		env.as.NoError(eng.Stop())

		eng2, timer2 := env.newEngine()
		defer func() { _ = eng2.Stop() }()

		// recovery re-arms the wake timer at the recorded wake time
		delay = timer2.WaitReset(env.as.T)
		env.as.Equal(time.Hour, delay)

		timer2.Fire(env.now)
		exec := env.waitForStatus(execID, api.ExecutionSuccess)
		env.as.Equal(int32(2), invocations.Load())
		env.as.ContextHas(exec.Output, "woke", true)
	})
}

func TestRestartRearmsRetryBackoff(t *testing.T) {
	withRestartEnv(t, func(env *restartEnv) {
		var invocations atomic.Int32

		env.registry.Register(api.NodeManualTrigger, api.ExecutorFunc(func(
			_ context.Context, _ *api.ExecuteRequest,
		) (api.Context, error) {
			return api.Context{}, nil
		}))
		env.registry.Register(api.NodeHTTPRequest, api.ExecutorFunc(func(
			_ context.Context, _ *api.ExecuteRequest,
		) (api.Context, error) {
			if invocations.Add(1) == 1 {
				return nil, api.TransientErr(errTemporary)
			}
			return api.Context{"done": true}, nil
		}))

		env.as.NoError(env.store.SaveWorkflow(
			context.Background(), simpleWorkflow("wf-restart-retry"),
		))

		eng, timer := env.newEngine()
		execID, err := eng.Trigger(
			context.Background(), api.TriggerEvent{
				WorkflowID: "wf-restart-retry",
			},
		)
		env.as.NoError(err)

		// the first attempt fails and a retry is pending when the
		// process dies
		timer.WaitReset(env.as.T)
		env.as.NoError(eng.Stop())

		eng2, timer2 := env.newEngine()
		defer func() { _ = eng2.Stop() }()

		delay := timer2.WaitReset(env.as.T)
		env.as.Equal(env.cfg.Retry.Backoff(1), delay)

		timer2.Fire(env.now)
		exec := env.waitForStatus(execID, api.ExecutionSuccess)
		env.as.Equal(int32(2), invocations.Load())
		env.as.ContextHas(exec.Output, "done", true)
	})
}

func TestRecoveryClearsFinishedExecutions(t *testing.T) {
	withRestartEnv(t, func(env *restartEnv) {
		env.registry.Register(api.NodeManualTrigger, api.ExecutorFunc(func(
			_ context.Context, _ *api.ExecuteRequest,
		) (api.Context, error) {
			return api.Context{}, nil
		}))
		env.registry.Register(api.NodeHTTPRequest, api.ExecutorFunc(func(
			_ context.Context, _ *api.ExecuteRequest,
		) (api.Context, error) {
			return api.Context{}, nil
		}))

		env.as.NoError(env.store.SaveWorkflow(
			context.Background(), simpleWorkflow("wf-restart-done"),
		))

		eng, _ := env.newEngine()
		execID, err := eng.Trigger(
			context.Background(), api.TriggerEvent{
				WorkflowID: "wf-restart-done",
			},
		)
		env.as.NoError(err)
		env.waitForStatus(execID, api.ExecutionSuccess)

		env.as.Eventually(func() bool {
			pending, err := env.store.ListPending(context.Background())
			return err == nil && len(pending) == 0
		}, runWaitTimeout, 10*time.Millisecond)
		env.as.NoError(eng.Stop())
	})
}
