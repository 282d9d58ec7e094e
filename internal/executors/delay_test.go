package executors_test

import (
	"context"
	"testing"
	"time"

	"github.com/nodebase/engine/internal/assert"
	"github.com/nodebase/engine/internal/executors"
	"github.com/nodebase/engine/pkg/api"
)

func TestDelaySleepsForConfiguredDuration(t *testing.T) {
	as := assert.New(t)

	req, steps, status := newRequest(api.NodeConfig{
		"amount": 5,
		"unit":   "minutes",
	}, api.Context{})

	out, err := executors.Delay().Execute(context.Background(), req)
	as.NoError(err)
	as.NotNil(out)
	as.Equal(5*time.Minute, steps.sleeps["delay-n1"])
	as.Equal(
		[]api.NodeStatus{api.StatusLoading, api.StatusSuccess},
		status.statuses,
	)
}

func TestDelayTemplatedAmount(t *testing.T) {
	as := assert.New(t)

	req, steps, _ := newRequest(api.NodeConfig{
		"amount": "{{config.waitHours}}",
		"unit":   "hours",
	}, api.Context{
		"config": map[string]any{"waitHours": 2},
	})

	_, err := executors.Delay().Execute(context.Background(), req)
	as.NoError(err)
	as.Equal(2*time.Hour, steps.sleeps["delay-n1"])
}

func TestDelayJitterStaysInRange(t *testing.T) {
	as := assert.New(t)

	req, steps, _ := newRequest(api.NodeConfig{
		"amount": 100,
		"unit":   "minutes",
		"jitter": true,
	}, api.Context{})

	_, err := executors.Delay().Execute(context.Background(), req)
	as.NoError(err)

	d := steps.sleeps["delay-n1"]
	as.GreaterOrEqual(d, 90*time.Minute)
	as.LessOrEqual(d, 110*time.Minute)
}

func TestDelayRejectsBeyondThirtyDays(t *testing.T) {
	as := assert.New(t)

	req, steps, _ := newRequest(api.NodeConfig{
		"amount": 90,
		"unit":   "days",
	}, api.Context{})

	_, err := executors.Delay().Execute(context.Background(), req)
	as.ErrorKind(err, api.ErrKindConfiguration)
	as.Contains(err.Error(), "exceeds the maximum")
	as.Empty(steps.sleeps)
}

func TestDelaySuspensionPropagates(t *testing.T) {
	as := assert.New(t)

	req, steps, status := newRequest(api.NodeConfig{
		"amount": 1,
		"unit":   "minutes",
	}, api.Context{})
	steps.suspend = true

	_, err := executors.Delay().Execute(context.Background(), req)
	as.ErrorIs(err, api.ErrSuspended)

	// suspension is not a failure; no error status is published
	as.Equal([]api.NodeStatus{api.StatusLoading}, status.statuses)
}

func TestDelayDurationMemoizedAcrossReplay(t *testing.T) {
	as := assert.New(t)

	req, steps, _ := newRequest(api.NodeConfig{
		"amount": 10,
		"unit":   "minutes",
		"jitter": true,
	}, api.Context{})
	steps.suspend = true

	_, err := executors.Delay().Execute(context.Background(), req)
	as.ErrorIs(err, api.ErrSuspended)
	first := steps.sleeps["delay-n1"]

	_, err = executors.Delay().Execute(context.Background(), req)
	as.NoError(err)
	as.Equal(first, steps.sleeps["delay-n1"])
}

func TestDelayConfigErrors(t *testing.T) {
	as := assert.New(t)

	req, _, _ := newRequest(api.NodeConfig{
		"unit": "minutes",
	}, api.Context{})
	_, err := executors.Delay().Execute(context.Background(), req)
	as.ErrorKind(err, api.ErrKindConfiguration)

	req, _, _ = newRequest(api.NodeConfig{
		"amount": 5,
		"unit":   "fortnights",
	}, api.Context{})
	_, err = executors.Delay().Execute(context.Background(), req)
	as.ErrorKind(err, api.ErrKindConfiguration)

	req, _, _ = newRequest(api.NodeConfig{
		"amount": -5,
		"unit":   "minutes",
	}, api.Context{})
	_, err = executors.Delay().Execute(context.Background(), req)
	as.ErrorKind(err, api.ErrKindConfiguration)
}
