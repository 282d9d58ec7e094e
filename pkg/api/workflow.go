package api

import (
	"errors"
	"fmt"

	"github.com/nodebase/engine/pkg/util"
)

type (
	// WorkflowID is a unique identifier for a workflow
	WorkflowID string

	// NodeID is a unique identifier for a node within a workflow
	NodeID string

	// ConnectionID is a unique identifier for a connection
	ConnectionID string

	// NodeType tags a node with the executor that implements it
	NodeType string

	// NodeConfig is the opaque per-type configuration payload of a node.
	// The engine never inspects it; the owning executor validates it
	NodeConfig map[string]any

	// Workflow is a stored graph of typed nodes and directed connections
	Workflow struct {
		ID          WorkflowID   `json:"id"`
		UserID      string       `json:"user_id"`
		Name        string       `json:"name,omitempty"`
		Nodes       []*Node      `json:"nodes"`
		Connections []Connection `json:"connections"`
	}

	// Node is a typed unit of work in a workflow graph
	Node struct {
		ID     NodeID     `json:"id"`
		Type   NodeType   `json:"type"`
		Config NodeConfig `json:"config,omitempty"`
	}

	// Connection is a directed, optionally-labeled edge between two nodes.
	// An empty Output is the default edge; condition nodes emit the labeled
	// edges "true" and "false"
	Connection struct {
		ID         ConnectionID `json:"id"`
		FromNodeID NodeID       `json:"from_node_id"`
		Output     string       `json:"output,omitempty"`
		ToNodeID   NodeID       `json:"to_node_id"`
	}
)

const (
	NodeManualTrigger     NodeType = "MANUAL_TRIGGER"
	NodeWebhookTrigger    NodeType = "WEBHOOK_TRIGGER"
	NodeScheduleTrigger   NodeType = "SCHEDULE_TRIGGER"
	NodeGoogleFormTrigger NodeType = "GOOGLE_FORM_TRIGGER"
	NodeStripeTrigger     NodeType = "STRIPE_TRIGGER"
	NodeOpenAI            NodeType = "OPENAI"
	NodeAnthropic         NodeType = "ANTHROPIC"
	NodeGemini            NodeType = "GEMINI"
	NodeDiscord           NodeType = "DISCORD"
	NodeSlack             NodeType = "SLACK"
	NodeTelegram          NodeType = "TELEGRAM"
	NodeCondition         NodeType = "CONDITION"
	NodeJSONTransform     NodeType = "JSON_TRANSFORM"
	NodeDelay             NodeType = "DELAY"
	NodeHTTPRequest       NodeType = "HTTP_REQUEST"
)

const (
	// BranchTrue labels the connection taken when a condition passes
	BranchTrue = "true"

	// BranchFalse labels the connection taken when a condition fails
	BranchFalse = "false"
)

var (
	ErrWorkflowIDEmpty  = errors.New("workflow ID empty")
	ErrNodeIDEmpty      = errors.New("node ID empty")
	ErrDuplicateNodeID  = errors.New("duplicate node ID")
	ErrInvalidNodeType  = errors.New("invalid node type")
	ErrUnknownEndpoint  = errors.New("connection references unknown node")
	ErrNoTriggerNode    = errors.New("workflow has no trigger node")
	ErrMultipleTriggers = errors.New("workflow has multiple trigger nodes")
)

var (
	validNodeTypes = util.SetOf(
		NodeManualTrigger,
		NodeWebhookTrigger,
		NodeScheduleTrigger,
		NodeGoogleFormTrigger,
		NodeStripeTrigger,
		NodeOpenAI,
		NodeAnthropic,
		NodeGemini,
		NodeDiscord,
		NodeSlack,
		NodeTelegram,
		NodeCondition,
		NodeJSONTransform,
		NodeDelay,
		NodeHTTPRequest,
	)

	triggerNodeTypes = util.SetOf(
		NodeManualTrigger,
		NodeWebhookTrigger,
		NodeScheduleTrigger,
		NodeGoogleFormTrigger,
		NodeStripeTrigger,
	)
)

// IsTrigger returns true if the node type is a workflow entry point
func (t NodeType) IsTrigger() bool {
	return triggerNodeTypes.Contains(t)
}

// Valid returns true if the node type is a member of the closed enum
func (t NodeType) Valid() bool {
	return validNodeTypes.Contains(t)
}

// Validate checks workflow-level invariants that don't require a graph
// traversal: non-empty IDs, unique node IDs, known node types, and
// connection endpoints that reference existing nodes
func (w *Workflow) Validate() error {
	if w.ID == "" {
		return ErrWorkflowIDEmpty
	}

	seen := util.Set[NodeID]{}
	for _, n := range w.Nodes {
		if n.ID == "" {
			return ErrNodeIDEmpty
		}
		if seen.Contains(n.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		seen.Add(n.ID)
		if !n.Type.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidNodeType, n.Type)
		}
	}

	for _, c := range w.Connections {
		if !seen.Contains(c.FromNodeID) {
			return fmt.Errorf("%w: %s", ErrUnknownEndpoint, c.FromNodeID)
		}
		if !seen.Contains(c.ToNodeID) {
			return fmt.Errorf("%w: %s", ErrUnknownEndpoint, c.ToNodeID)
		}
	}
	return nil
}

// TriggerNode returns the workflow's single trigger node, failing when zero
// or more than one exists
func (w *Workflow) TriggerNode() (*Node, error) {
	var trigger *Node
	for _, n := range w.Nodes {
		if !n.Type.IsTrigger() {
			continue
		}
		if trigger != nil {
			return nil, ErrMultipleTriggers
		}
		trigger = n
	}
	if trigger == nil {
		return nil, ErrNoTriggerNode
	}
	return trigger, nil
}

// NodeByID returns the node with the given ID, or nil
func (w *Workflow) NodeByID(id NodeID) *Node {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// String returns the string value of a node configuration field
func (c NodeConfig) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the boolean value of a node configuration field
func (c NodeConfig) Bool(key string) bool {
	v, ok := c[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
