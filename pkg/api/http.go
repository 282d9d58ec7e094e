package api

type (
	// ErrorResponse is the standard error payload for REST endpoints
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}

	// RunResponse acknowledges a triggered workflow run
	RunResponse struct {
		ExecutionID ExecutionID `json:"execution_id"`
	}

	// ScheduleStartRequest asks the engine to start or restart a
	// workflow's schedule cycle
	ScheduleStartRequest struct {
		WorkflowID WorkflowID `json:"workflowId"`
	}

	// SubscribeRequest is the websocket message that selects which status
	// channels a client receives. An empty channel list receives all
	SubscribeRequest struct {
		Type     string   `json:"type"`
		Channels []string `json:"channels,omitempty"`
	}

	// SubscribedResult acknowledges a websocket subscription
	SubscribedResult struct {
		Type     string   `json:"type"`
		Channels []string `json:"channels,omitempty"`
	}
)
