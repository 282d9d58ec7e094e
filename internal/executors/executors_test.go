package executors_test

import (
	"context"
	"time"

	"github.com/nodebase/engine/pkg/api"
)

type (
	// stubSteps is an in-memory StepRunner for executor tests
	stubSteps struct {
		memo    map[string]any
		sleeps  map[string]time.Duration
		suspend bool
	}

	// stubStatus records the lifecycle events an executor publishes
	stubStatus struct {
		statuses []api.NodeStatus
	}
)

func newStubSteps() *stubSteps {
	return &stubSteps{
		memo:   map[string]any{},
		sleeps: map[string]time.Duration{},
	}
}

func (s *stubSteps) Run(
	ctx context.Context, key string, fn func(context.Context) (any, error),
) (any, error) {
	if v, ok := s.memo[key]; ok {
		return v, nil
	}
	v, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	s.memo[key] = v
	return v, nil
}

func (s *stubSteps) Sleep(
	_ context.Context, key string, d time.Duration,
) error {
	s.sleeps[key] = d
	if s.suspend {
		s.suspend = false
		return api.ErrSuspended
	}
	return nil
}

func (s *stubSteps) SleepUntil(
	ctx context.Context, key string, at time.Time,
) error {
	return s.Sleep(ctx, key, time.Until(at))
}

func (s *stubStatus) Status(_ api.NodeID, status api.NodeStatus) {
	s.statuses = append(s.statuses, status)
}

func newRequest(
	cfg api.NodeConfig, c api.Context,
) (*api.ExecuteRequest, *stubSteps, *stubStatus) {
	steps := newStubSteps()
	status := &stubStatus{}
	return &api.ExecuteRequest{
		Config:  cfg,
		NodeID:  "n1",
		Context: c,
		Steps:   steps,
		Status:  status,
	}, steps, status
}
