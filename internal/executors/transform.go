package executors

import (
	"context"
	"encoding/json"

	"github.com/nodebase/engine/pkg/api"
)

// Transform returns the executor for JSON transform nodes. The configured
// template is interpolated against the run context and the result must
// parse as JSON, which is stored under the configured variable name
func Transform() api.Executor {
	return api.ExecutorFunc(func(
		ctx context.Context, req *api.ExecuteRequest,
	) (api.Context, error) {
		req.Status.Status(req.NodeID, api.StatusLoading)

		out, err := transform(req)
		if err != nil {
			req.Status.Status(req.NodeID, api.StatusError)
			return nil, err
		}
		req.Status.Status(req.NodeID, api.StatusSuccess)
		return out, nil
	})
}

func transform(req *api.ExecuteRequest) (api.Context, error) {
	tpl, ok := req.Config.String("template")
	if !ok || tpl == "" {
		return nil, api.ConfigErr("transform node has no template")
	}
	name, ok := req.Config.String("variableName")
	if !ok || name == "" {
		return nil, api.ConfigErr("transform node has no variable name")
	}

	rendered, err := interpolate(tpl, req.Context)
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal([]byte(rendered), &value); err != nil {
		return nil, api.ConfigErr(
			"transform result is not valid JSON: %w", err,
		)
	}
	return api.Context{name: value}, nil
}
