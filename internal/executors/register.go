package executors

import (
	"github.com/nodebase/engine/internal/engine"
	"github.com/nodebase/engine/pkg/api"
)

// NewRegistry returns a registry populated with the built-in executors.
// The AI and messaging node types carry no built-in executor; dispatching
// one unregistered fails the run non-retriably
func NewRegistry() *engine.Registry {
	r := engine.NewRegistry()
	trigger := Trigger()
	for _, t := range []api.NodeType{
		api.NodeManualTrigger,
		api.NodeWebhookTrigger,
		api.NodeScheduleTrigger,
		api.NodeGoogleFormTrigger,
		api.NodeStripeTrigger,
	} {
		r.Register(t, trigger)
	}
	r.Register(api.NodeCondition, Condition())
	r.Register(api.NodeJSONTransform, Transform())
	r.Register(api.NodeDelay, Delay())
	r.Register(api.NodeHTTPRequest, HTTPRequest())
	return r
}
