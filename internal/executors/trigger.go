package executors

import (
	"context"
	"fmt"

	"github.com/nodebase/engine/pkg/api"
)

// Trigger returns the executor shared by the trigger node types. A trigger
// does no work of its own; it passes the run's initial data through a
// durable step so replays see a consistent starting context
func Trigger() api.Executor {
	return api.ExecutorFunc(func(
		ctx context.Context, req *api.ExecuteRequest,
	) (api.Context, error) {
		req.Status.Status(req.NodeID, api.StatusLoading)

		out, err := req.Steps.Run(ctx,
			fmt.Sprintf("trigger-%s", req.NodeID),
			func(context.Context) (any, error) {
				return map[string]any(req.Context), nil
			},
		)
		if err != nil {
			req.Status.Status(req.NodeID, api.StatusError)
			return nil, err
		}

		req.Status.Status(req.NodeID, api.StatusSuccess)
		result, _ := out.(map[string]any)
		return api.Context(result), nil
	})
}
