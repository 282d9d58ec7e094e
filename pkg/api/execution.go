package api

import "time"

type (
	// ExecutionID is a unique identifier for a single workflow run
	ExecutionID string

	// EventID correlates an execution with the trigger event that started it
	EventID string

	// ExecutionStatus represents the current state of a workflow run
	ExecutionStatus string

	// Execution is the persisted record of one workflow run. It is created
	// at run start and mutated exactly twice: once to mark the run active
	// and once with the terminal result
	Execution struct {
		ID          ExecutionID     `json:"id"`
		WorkflowID  WorkflowID      `json:"workflow_id"`
		EventID     EventID         `json:"event_id"`
		Status      ExecutionStatus `json:"status"`
		StartedAt   time.Time       `json:"started_at"`
		CompletedAt time.Time       `json:"completed_at,omitempty"`
		Output      Context         `json:"output,omitempty"`
		Error       string          `json:"error,omitempty"`
		ErrorStack  string          `json:"error_stack,omitempty"`
	}

	// Checkpoint is the durable walk state of a run, persisted after every
	// node and before every sleep. Resumption re-enters the engine from a
	// checkpoint rather than keeping a live call stack
	Checkpoint struct {
		ExecutionID   ExecutionID `json:"execution_id"`
		WorkflowID    WorkflowID  `json:"workflow_id"`
		UserID        string      `json:"user_id"`
		CurrentNodeID NodeID      `json:"current_node_id"`
		Context       Context     `json:"context"`
		StepCount     int         `json:"step_count"`
		Attempt       int         `json:"attempt"`
	}
)

const (
	ExecutionPending ExecutionStatus = "PENDING"
	ExecutionRunning ExecutionStatus = "RUNNING"
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailed  ExecutionStatus = "FAILED"
)

// Terminal returns true once an execution has reached a final status
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionSuccess || s == ExecutionFailed
}
