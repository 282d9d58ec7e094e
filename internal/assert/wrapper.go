// Package assert wraps testify with workflow-specific helpers
package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nodebase/engine/internal/config"
	"github.com/nodebase/engine/pkg/api"
)

// Wrapper wraps testify assertions with workflow-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
	}
}

// WorkflowValid asserts that a workflow passes validation
func (w *Wrapper) WorkflowValid(wf *api.Workflow) {
	w.Helper()
	w.NoError(wf.Validate())
	w.NotEmpty(wf.ID)
}

// WorkflowInvalid asserts that a workflow fails validation and returns the
// validation error
func (w *Wrapper) WorkflowInvalid(
	wf *api.Workflow, expectedErrorContains string,
) error {
	w.Helper()
	err := wf.Validate()
	w.Error(err)
	if err != nil && expectedErrorContains != "" {
		w.Contains(err.Error(), expectedErrorContains)
	}
	return err
}

// ExecutionStatus asserts the status of an execution
func (w *Wrapper) ExecutionStatus(
	exec *api.Execution, expected api.ExecutionStatus,
) {
	w.Helper()
	w.Equal(expected, exec.Status)
}

// ErrorKind asserts an error's failure classification
func (w *Wrapper) ErrorKind(err error, expected api.ErrorKind) {
	w.Helper()
	w.Error(err)
	w.Equal(expected, api.KindOf(err))
}

// ContextHas asserts that a run context contains the key with the value
func (w *Wrapper) ContextHas(c api.Context, key string, expected any) {
	w.Helper()
	val, ok := c[key]
	w.True(ok, "context should have key: %s", key)
	w.Equal(expected, val)
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= 65535)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if contains != "" {
		w.Contains(err.Error(), contains)
	}
}
