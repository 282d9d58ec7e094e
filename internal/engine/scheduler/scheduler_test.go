package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nodebase/engine/internal/engine/scheduler"
)

type (
	testTimerConstructor struct {
		created chan *fakeTimer
	}

	fakeTimer struct {
		ch      chan time.Time
		resets  chan time.Duration
		stops   chan struct{}
		stopped atomic.Bool
	}
)

const schedulerWaitTimeout = time.Second

func TestScheduleTask(t *testing.T) {
	withFakeScheduler(t, func(
		ctx context.Context, s *scheduler.Scheduler, timer *fakeTimer,
		now time.Time,
	) {
		done := make(chan struct{}, 1)

		s.Schedule(ctx,
			[]string{"sched", "run"},
			now.Add(40*time.Millisecond),
			func() error {
				done <- struct{}{}
				return nil
			},
		)
		delay := timer.WaitReset(t)
		assert.Equal(t, 40*time.Millisecond, delay)
		timer.Fire(now)

		select {
		case <-done:
		case <-time.After(schedulerWaitTimeout):
			t.Fatal("scheduled task did not run")
		}
	})
}

func TestScheduleTaskReplacesSameKey(t *testing.T) {
	withFakeScheduler(t, func(
		ctx context.Context, s *scheduler.Scheduler, timer *fakeTimer,
		now time.Time,
	) {
		var firstRuns atomic.Int32
		var secondRuns atomic.Int32
		secondDone := make(chan struct{}, 1)
		key := []string{"sched", "replace"}

		s.Schedule(ctx, key, now.Add(300*time.Millisecond),
			func() error {
				firstRuns.Add(1)
				return nil
			},
		)
		assert.Equal(t, 300*time.Millisecond, timer.WaitReset(t))

		s.Schedule(ctx, key, now.Add(40*time.Millisecond),
			func() error {
				secondRuns.Add(1)
				secondDone <- struct{}{}
				return nil
			},
		)
		assert.Equal(t, 40*time.Millisecond, timer.WaitReset(t))
		timer.Fire(now)

		select {
		case <-secondDone:
		case <-time.After(schedulerWaitTimeout):
			t.Fatal("replacement task did not run")
		}
		assert.Equal(t, int32(0), firstRuns.Load())
		assert.Equal(t, int32(1), secondRuns.Load())
	})
}

func TestCancelTask(t *testing.T) {
	withFakeScheduler(t, func(
		ctx context.Context, s *scheduler.Scheduler, timer *fakeTimer,
		now time.Time,
	) {
		var ran atomic.Bool
		done := make(chan struct{}, 1)

		key := []string{"sched", "cancel", "one"}
		s.Schedule(ctx, key, now.Add(100*time.Millisecond),
			func() error {
				ran.Store(true)
				done <- struct{}{}
				return nil
			},
		)
		assert.Equal(t, 100*time.Millisecond, timer.WaitReset(t))
		s.Cancel(ctx, key)
		timer.WaitStop(t)
		timer.Fire(now)

		select {
		case <-done:
			t.Fatal("cancelled task ran")
		case <-time.After(100 * time.Millisecond):
		}
		assert.False(t, ran.Load())
	})
}

func TestEarlierTaskRunsFirst(t *testing.T) {
	withFakeScheduler(t, func(
		ctx context.Context, s *scheduler.Scheduler, timer *fakeTimer,
		now time.Time,
	) {
		order := make(chan string, 2)

		s.Schedule(ctx,
			[]string{"sched", "late"},
			now.Add(200*time.Millisecond),
			func() error {
				order <- "late"
				return nil
			},
		)
		timer.WaitReset(t)

		s.Schedule(ctx,
			[]string{"sched", "early"},
			now.Add(50*time.Millisecond),
			func() error {
				order <- "early"
				return nil
			},
		)
		assert.Equal(t, 50*time.Millisecond, timer.WaitReset(t))

		timer.Fire(now)
		assert.Equal(t, "early", waitOrder(t, order))

		timer.WaitReset(t)
		timer.Fire(now)
		assert.Equal(t, "late", waitOrder(t, order))
	})
}

func waitOrder(t *testing.T, order chan string) string {
	t.Helper()
	select {
	case name := <-order:
		return name
	case <-time.After(schedulerWaitTimeout):
		t.Fatal("task did not run")
		return ""
	}
}

func (c *testTimerConstructor) NewTimer(
	delay time.Duration,
) scheduler.Timer {
	timer := newFakeTimer()
	_ = delay
	select {
	case c.created <- timer:
	default:
	}
	return timer
}

func (c *testTimerConstructor) WaitTimer(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case timer := <-c.created:
		return timer
	case <-time.After(schedulerWaitTimeout):
		t.Fatal("scheduler timer was not created")
		return nil
	}
}

func (t *fakeTimer) Channel() <-chan time.Time {
	return t.ch
}

func (t *fakeTimer) Reset(delay time.Duration) bool {
	t.stopped.Store(false)
	drainTimeChan(t.ch)
	t.resets <- delay
	return true
}

func (t *fakeTimer) Stop() bool {
	alreadyStopped := t.stopped.Load()
	t.stopped.Store(true)
	drainTimeChan(t.ch)
	t.stops <- struct{}{}
	return !alreadyStopped
}

func (t *fakeTimer) Fire(at time.Time) {
	if t.stopped.Load() {
		return
	}
	select {
	case t.ch <- at:
	default:
	}
}

func (t *fakeTimer) WaitReset(test *testing.T) time.Duration {
	test.Helper()
	select {
	case delay := <-t.resets:
		return delay
	case <-time.After(schedulerWaitTimeout):
		test.Fatal("scheduler timer reset not observed")
		return 0
	}
}

func (t *fakeTimer) WaitStop(test *testing.T) {
	test.Helper()
	select {
	case <-t.stops:
	case <-time.After(schedulerWaitTimeout):
		test.Fatal("scheduler timer stop not observed")
	}
}

func (t *fakeTimer) DrainResets() {
	for {
		select {
		case <-t.resets:
		default:
			return
		}
	}
}

func withFakeScheduler(
	t *testing.T,
	fn func(context.Context, *scheduler.Scheduler, *fakeTimer, time.Time),
) {
	t.Helper()
	now := time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)
	tc := newTestTimerConstructor()

	s := scheduler.New(func() time.Time { return now }, tc.NewTimer)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	timer := tc.WaitTimer(t)
	timer.DrainResets()
	fn(ctx, s, timer, now)
}

func newTestTimerConstructor() *testTimerConstructor {
	return &testTimerConstructor{
		created: make(chan *fakeTimer, 1),
	}
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{
		ch:     make(chan time.Time, 1),
		resets: make(chan time.Duration, 16),
		stops:  make(chan struct{}, 16),
	}
}

func drainTimeChan(ch <-chan time.Time) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
