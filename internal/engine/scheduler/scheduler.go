// Package scheduler runs one-shot delayed tasks for the engine
//
// Durable sleeps, retry backoff, and cron firings all register tasks here.
// Scheduling the same key replaces the pending task, which gives schedule
// restarts their idempotency
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/nodebase/engine/pkg/log"
)

type (
	// Scheduler runs delayed tasks and supports keyed replacement and
	// cancellation
	Scheduler struct {
		now       Clock
		makeTimer TimerConstructor
		tasks     chan taskReq
	}

	// TaskFunc is called when its run time arrives
	TaskFunc func() error

	taskReqOp uint8

	taskReq struct {
		op   taskReqOp
		task *Task
		key  []string
	}
)

const (
	taskReqSchedule taskReqOp = iota
	taskReqCancel
)

// New creates a scheduler using the provided clock and timer constructor
func New(now Clock, makeTimer TimerConstructor) *Scheduler {
	return &Scheduler{
		now:       now,
		makeTimer: makeTimer,
		tasks:     make(chan taskReq, 100),
	}
}

// Schedule enqueues a task to run at the requested time. A task already
// pending under the same key is replaced
func (s *Scheduler) Schedule(
	ctx context.Context, key []string, at time.Time, fn TaskFunc,
) {
	s.sendTaskReq(ctx, taskReq{
		op:   taskReqSchedule,
		task: &Task{Func: fn, At: at, Key: key},
	})
}

// Cancel removes the task registered for the exact key
func (s *Scheduler) Cancel(ctx context.Context, key []string) {
	s.sendTaskReq(ctx, taskReq{op: taskReqCancel, key: key})
}

// Run processes scheduler requests until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	timer := s.makeTimer(0)
	var timerCh <-chan time.Time
	tasks := NewTaskHeap()

	resetTimer := func() {
		var next time.Time
		if t := tasks.Peek(); t != nil {
			next = t.At
		}
		if next.IsZero() {
			timer.Stop()
			timerCh = nil
			return
		}
		timer.Reset(next.Sub(s.now()))
		timerCh = timer.Channel()
	}

	resetTimer()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case req := <-s.tasks:
			switch req.op {
			case taskReqSchedule:
				tasks.Insert(req.task)
			case taskReqCancel:
				tasks.Cancel(req.key)
			}
			resetTimer()
		case <-timerCh:
			task := tasks.PopTask()
			if task == nil {
				resetTimer()
				continue
			}
			if err := task.Func(); err != nil {
				slog.Error("Scheduled task failed", log.Error(err))
			}
			resetTimer()
		}
	}
}

func (s *Scheduler) sendTaskReq(ctx context.Context, req taskReq) {
	select {
	case s.tasks <- req:
	case <-ctx.Done():
	}
}
