package executors_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nodebase/engine/internal/assert"
	"github.com/nodebase/engine/internal/executors"
	"github.com/nodebase/engine/pkg/api"
)

func TestHTTPRequestRoundTrip(t *testing.T) {
	as := assert.New(t)

	var gotMethod, gotBody, gotHeader string
	ts := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotHeader = r.Header.Get("X-Api-Key")
			data, _ := io.ReadAll(r.Body)
			gotBody = string(data)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 7}`))
		},
	))
	defer ts.Close()

	req, steps, _ := newRequest(api.NodeConfig{
		"url":    ts.URL,
		"method": "post",
		"body":   `{"name": "{{customer}}"}`,
		"headers": map[string]any{
			"X-Api-Key": "k-123",
		},
		"variableName": "created",
	}, api.Context{"customer": "Ada"})

	out, err := executors.HTTPRequest().Execute(context.Background(), req)
	as.NoError(err)

	as.Equal(http.MethodPost, gotMethod)
	as.Equal(`{"name": "Ada"}`, gotBody)
	as.Equal("k-123", gotHeader)

	created, ok := out["created"].(map[string]any)
	as.True(ok)
	as.Equal(http.StatusCreated, created["status"])
	as.Equal(`{"id": 7}`, created["body"])

	as.Contains(steps.memo, "http-request-n1")
}

func TestHTTPRequestReplaySkipsNetwork(t *testing.T) {
	as := assert.New(t)

	var hits int
	ts := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			hits++
			_, _ = w.Write([]byte("ok"))
		},
	))
	defer ts.Close()

	req, _, _ := newRequest(api.NodeConfig{
		"url":          ts.URL,
		"variableName": "res",
	}, api.Context{})

	_, err := executors.HTTPRequest().Execute(context.Background(), req)
	as.NoError(err)
	_, err = executors.HTTPRequest().Execute(context.Background(), req)
	as.NoError(err)
	as.Equal(1, hits)
}

func TestHTTPRequestMissingURL(t *testing.T) {
	as := assert.New(t)

	req, _, _ := newRequest(api.NodeConfig{
		"variableName": "res",
	}, api.Context{})

	_, err := executors.HTTPRequest().Execute(context.Background(), req)
	as.ErrorKind(err, api.ErrKindConfiguration)
}

func TestHTTPRequestNetworkFailureIsTransient(t *testing.T) {
	as := assert.New(t)

	req, _, _ := newRequest(api.NodeConfig{
		"url":          "http://127.0.0.1:1/unreachable",
		"variableName": "res",
	}, api.Context{})

	_, err := executors.HTTPRequest().Execute(context.Background(), req)
	as.ErrorKind(err, api.ErrKindTransient)
}
