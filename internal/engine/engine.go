package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nodebase/engine/internal/config"
	"github.com/nodebase/engine/internal/engine/scheduler"
	"github.com/nodebase/engine/internal/status"
	"github.com/nodebase/engine/internal/store"
	"github.com/nodebase/engine/pkg/api"
	"github.com/nodebase/engine/pkg/log"
)

type (
	// Store is the persistence collaborator consumed by the engine
	Store interface {
		LoadWorkflow(context.Context, api.WorkflowID) (*api.Workflow, error)
		CreateExecution(context.Context, *api.Execution) error
		UpdateExecution(context.Context, *api.Execution) error
		GetExecution(context.Context, api.ExecutionID) (*api.Execution, error)
		SaveCheckpoint(context.Context, *api.Checkpoint) error
		LoadCheckpoint(context.Context, api.ExecutionID) (*api.Checkpoint, error)
		MemoGet(
			context.Context, api.ExecutionID, string,
		) (json.RawMessage, bool, error)
		MemoPut(context.Context, api.ExecutionID, string, any) error
		SleepGet(
			context.Context, api.ExecutionID, string,
		) (*store.SleepState, error)
		SleepPut(
			context.Context, api.ExecutionID, string, *store.SleepState,
		) error
		ListSleeps(
			context.Context, api.ExecutionID,
		) (map[string]*store.SleepState, error)
		PendingAdd(context.Context, api.ExecutionID) error
		PendingRemove(context.Context, api.ExecutionID) error
		ListPending(context.Context) ([]api.ExecutionID, error)
	}

	// Archiver receives terminal execution records for cold storage.
	// Archival is best-effort
	Archiver interface {
		Archive(context.Context, *api.Execution) error
	}

	// Engine is the workflow execution engine. Each triggered run is an
	// independent unit of work; runs share only the store
	Engine struct {
		store    Store
		hub      *status.Hub
		registry *Registry
		archiver Archiver
		sched    *scheduler.Scheduler
		clock    scheduler.Clock
		cfg      *config.Config
		ctx      context.Context
		cancel   context.CancelFunc
		wg       sync.WaitGroup
	}

	// Dependencies carries the engine's collaborators. Clock and MakeTimer
	// default to the system implementations, enabling deterministic tests
	Dependencies struct {
		Store     Store
		Hub       *status.Hub
		Registry  *Registry
		Archiver  Archiver
		Clock     scheduler.Clock
		MakeTimer scheduler.TimerConstructor
	}
)

var (
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")
	ErrMissingEventID  = errors.New("event ID or workflow ID is missing")
)

// New creates an engine instance with the specified configuration and
// collaborators
func New(cfg *config.Config, deps Dependencies) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	makeTimer := deps.MakeTimer
	if makeTimer == nil {
		makeTimer = scheduler.NewTimer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:    deps.Store,
		hub:      deps.Hub,
		registry: deps.Registry,
		archiver: deps.Archiver,
		sched:    scheduler.New(clock, makeTimer),
		clock:    clock,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing scheduled tasks and re-arms any runs that were
// in flight when the process last stopped
func (e *Engine) Start() {
	slog.Info("Engine starting")
	e.wg.Go(func() {
		e.sched.Run(e.ctx)
	})
	e.wg.Go(e.recoverPending)
}

// Stop gracefully shuts down the engine, waiting for in-flight runs
func (e *Engine) Stop() error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Engine stopped")
		return nil
	case <-time.After(e.cfg.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// Now returns the current wall time from the engine's configured clock
func (e *Engine) Now() time.Time {
	return e.clock()
}

// Trigger validates an inbound trigger event, records a new execution, and
// starts an independent run. A missing workflow ID fails non-retriably
func (e *Engine) Trigger(
	ctx context.Context, evt api.TriggerEvent,
) (api.ExecutionID, error) {
	if evt.WorkflowID == "" {
		return "", api.ConfigErr("%w", ErrMissingEventID)
	}
	if evt.EventID == "" {
		evt.EventID = api.EventID(uuid.NewString())
	}

	exec := &api.Execution{
		ID:         api.ExecutionID(uuid.NewString()),
		WorkflowID: evt.WorkflowID,
		EventID:    evt.EventID,
		Status:     api.ExecutionPending,
		StartedAt:  e.Now(),
	}
	if err := e.store.CreateExecution(ctx, exec); err != nil {
		return "", api.TransientErr(err)
	}
	if err := e.store.PendingAdd(ctx, exec.ID); err != nil {
		return "", api.TransientErr(err)
	}

	initial := evt.InitialData
	if initial == nil {
		initial = api.Context{}
	}
	cp := &api.Checkpoint{
		ExecutionID: exec.ID,
		WorkflowID:  evt.WorkflowID,
		Context:     initial,
	}
	if err := e.store.SaveCheckpoint(ctx, cp); err != nil {
		return "", api.TransientErr(err)
	}

	slog.Info("Execution triggered",
		log.ExecutionID(exec.ID),
		log.WorkflowID(evt.WorkflowID))

	e.wg.Go(func() {
		e.runExecution(exec.ID)
	})
	return exec.ID, nil
}

// Resume re-enters a suspended or retrying run from its checkpoint
func (e *Engine) Resume(id api.ExecutionID) {
	e.wg.Go(func() {
		e.runExecution(id)
	})
}

func (e *Engine) scheduleTask(
	key []string, at time.Time, fn scheduler.TaskFunc,
) {
	e.sched.Schedule(e.ctx, key, at, fn)
}

func (e *Engine) cancelTask(key []string) {
	e.sched.Cancel(e.ctx, key)
}
