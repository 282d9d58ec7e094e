package executors

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nodebase/engine/pkg/api"
)

const httpRequestTimeout = 30 * time.Second

// HTTPRequest returns the executor for outbound HTTP request nodes. The
// request runs inside a durable step, so a replayed run never re-sends it
func HTTPRequest() api.Executor {
	client := &http.Client{Timeout: httpRequestTimeout}
	return api.ExecutorFunc(func(
		ctx context.Context, req *api.ExecuteRequest,
	) (api.Context, error) {
		req.Status.Status(req.NodeID, api.StatusLoading)

		out, err := performRequest(ctx, client, req)
		if err != nil {
			req.Status.Status(req.NodeID, api.StatusError)
			return nil, err
		}
		req.Status.Status(req.NodeID, api.StatusSuccess)
		return out, nil
	})
}

func performRequest(
	ctx context.Context, client *http.Client, req *api.ExecuteRequest,
) (api.Context, error) {
	rawURL, ok := req.Config.String("url")
	if !ok || rawURL == "" {
		return nil, api.ConfigErr("http request node has no url")
	}
	url, err := interpolate(rawURL, req.Context)
	if err != nil {
		return nil, err
	}

	method, _ := req.Config.String("method")
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	var body string
	if raw, ok := req.Config.String("body"); ok && raw != "" {
		if body, err = interpolate(raw, req.Context); err != nil {
			return nil, err
		}
	}

	name, ok := req.Config.String("variableName")
	if !ok || name == "" {
		return nil, api.ConfigErr("http request node has no variable name")
	}

	out, err := req.Steps.Run(ctx,
		fmt.Sprintf("http-request-%s", req.NodeID),
		func(ctx context.Context) (any, error) {
			return sendRequest(ctx, client, req.Config, method, url, body)
		},
	)
	if err != nil {
		return nil, err
	}
	return api.Context{name: out}, nil
}

func sendRequest(
	ctx context.Context, client *http.Client, cfg api.NodeConfig,
	method, url, body string,
) (any, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, api.ConfigErr("invalid http request: %w", err)
	}
	if headers, ok := cfg["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				httpReq.Header.Set(k, s)
			}
		}
	}

	res, err := client.Do(httpReq)
	if err != nil {
		return nil, api.TransientErr(err)
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, api.TransientErr(err)
	}
	return map[string]any{
		"status": res.StatusCode,
		"body":   string(data),
	}, nil
}
