package api

type (
	// NodeStatus is a per-node lifecycle stage published to subscribers
	NodeStatus string

	// TriggerEvent is the inbound signal that starts a workflow run.
	// Sources: manual UI action, webhook adapter, schedule fire
	TriggerEvent struct {
		EventID     EventID    `json:"event_id"`
		WorkflowID  WorkflowID `json:"workflow_id"`
		InitialData Context    `json:"initial_data,omitempty"`
	}

	// ScheduleStartSignal starts or restarts the schedule runner loop for
	// a workflow
	ScheduleStartSignal struct {
		WorkflowID WorkflowID `json:"workflow_id"`
	}

	// NodeStatusEvent is an ephemeral per-node lifecycle event. It is
	// published once per executor invocation per stage and never persisted
	NodeStatusEvent struct {
		Channel string     `json:"channel"`
		NodeID  NodeID     `json:"node_id"`
		Status  NodeStatus `json:"status"`
	}
)

const (
	StatusLoading NodeStatus = "loading"
	StatusSuccess NodeStatus = "success"
	StatusError   NodeStatus = "error"
)

// StatusTopic is the single topic name status events are published under
const StatusTopic = "status"

var channelNames = map[NodeType]string{
	NodeManualTrigger:     "manual-trigger-execution",
	NodeWebhookTrigger:    "webhook-trigger-execution",
	NodeScheduleTrigger:   "schedule-trigger-execution",
	NodeGoogleFormTrigger: "google-form-trigger-execution",
	NodeStripeTrigger:     "stripe-trigger-execution",
	NodeOpenAI:            "openai-execution",
	NodeAnthropic:         "anthropic-execution",
	NodeGemini:            "gemini-execution",
	NodeDiscord:           "discord-execution",
	NodeSlack:             "slack-execution",
	NodeTelegram:          "telegram-execution",
	NodeCondition:         "condition-execution",
	NodeJSONTransform:     "json-transform-execution",
	NodeDelay:             "delay-execution",
	NodeHTTPRequest:       "http-request-execution",
}

// ChannelName returns the status channel name for a node type
func ChannelName(t NodeType) string {
	if name, ok := channelNames[t]; ok {
		return name
	}
	return "node-execution"
}
