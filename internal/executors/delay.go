package executors

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/nodebase/engine/pkg/api"
)

const maxDelay = 30 * 24 * time.Hour

var delayUnits = map[string]time.Duration{
	"milliseconds": time.Millisecond,
	"minutes":      time.Minute,
	"hours":        time.Hour,
	"days":         24 * time.Hour,
}

// Delay returns the executor for delay nodes. The delay duration is
// resolved once inside a durable step, so replays after the sleep matures
// observe the same duration even when jitter is enabled
func Delay() api.Executor {
	return api.ExecutorFunc(func(
		ctx context.Context, req *api.ExecuteRequest,
	) (api.Context, error) {
		req.Status.Status(req.NodeID, api.StatusLoading)

		d, err := resolveDelay(ctx, req)
		if err != nil {
			req.Status.Status(req.NodeID, api.StatusError)
			return nil, err
		}

		key := fmt.Sprintf("delay-%s", req.NodeID)
		if err := req.Steps.Sleep(ctx, key, d); err != nil {
			if !errors.Is(err, api.ErrSuspended) {
				req.Status.Status(req.NodeID, api.StatusError)
			}
			return nil, err
		}

		req.Status.Status(req.NodeID, api.StatusSuccess)
		return api.Context{}, nil
	})
}

func resolveDelay(
	ctx context.Context, req *api.ExecuteRequest,
) (time.Duration, error) {
	out, err := req.Steps.Run(ctx,
		fmt.Sprintf("delay-duration-%s", req.NodeID),
		func(context.Context) (any, error) {
			d, err := delayFromConfig(req)
			if err != nil {
				return nil, err
			}
			return d.Milliseconds(), nil
		},
	)
	if err != nil {
		return 0, err
	}

	ms, err := toFloat(out)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func delayFromConfig(req *api.ExecuteRequest) (time.Duration, error) {
	amount, err := delayAmount(req)
	if err != nil {
		return 0, err
	}

	unit, _ := req.Config.String("unit")
	scale, ok := delayUnits[unit]
	if !ok {
		return 0, api.ConfigErr("unknown delay unit: %q", unit)
	}

	d := time.Duration(amount * float64(scale))
	if d <= 0 {
		return 0, api.ConfigErr("delay amount must be positive")
	}
	if req.Config.Bool("jitter") {
		factor := 0.9 + rand.Float64()*0.2
		d = time.Duration(float64(d) * factor)
	}
	if d > maxDelay {
		return 0, api.ConfigErr(
			"delay exceeds the maximum of %s", maxDelay,
		)
	}
	return d, nil
}

func delayAmount(req *api.ExecuteRequest) (float64, error) {
	switch v := req.Config["amount"].(type) {
	case string:
		rendered, err := interpolate(v, req.Context)
		if err != nil {
			return 0, err
		}
		amount, err := strconv.ParseFloat(rendered, 64)
		if err != nil {
			return 0, api.ConfigErr(
				"delay amount is not numeric: %q", rendered,
			)
		}
		return amount, nil
	case nil:
		return 0, api.ConfigErr("delay node has no amount")
	default:
		return toFloat(v)
	}
}
