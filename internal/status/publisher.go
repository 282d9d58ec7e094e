// Package status implements best-effort per-node lifecycle event delivery
//
// Events fan out to subscribers (the websocket stream) through an
// in-process topic. Delivery failures are logged and never escalate into
// the node's actual work
package status

import (
	"log/slog"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/nodebase/engine/pkg/api"
)

type (
	// Hub fans NodeStatusEvents out to any number of consumers
	Hub struct {
		topic topic.Topic[api.NodeStatusEvent]
		prod  topic.Producer[api.NodeStatusEvent]
	}

	// Publisher emits status events for a single node invocation, bound to
	// the node type's channel name
	Publisher struct {
		hub     *Hub
		channel string
	}
)

// NewHub creates a status event hub
func NewHub() *Hub {
	t := caravan.NewTopic[api.NodeStatusEvent]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish delivers a status event to all subscribers. Best-effort: a
// failed delivery is logged, never propagated
func (h *Hub) Publish(evt api.NodeStatusEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Failed to publish node status",
				slog.String("channel", evt.Channel),
				slog.Any("node_id", evt.NodeID),
				slog.Any("panic", r))
		}
	}()
	message.Send(h.prod, evt)
}

// NewConsumer registers a new subscriber to the status stream
func (h *Hub) NewConsumer() topic.Consumer[api.NodeStatusEvent] {
	return h.topic.NewConsumer()
}

// Close shuts down the hub's producer
func (h *Hub) Close() {
	h.prod.Close()
}

// ForNode binds the hub to a node type's channel for one executor
// invocation
func (h *Hub) ForNode(t api.NodeType) *Publisher {
	return &Publisher{
		hub:     h,
		channel: api.ChannelName(t),
	}
}

// Status publishes a lifecycle event for the node
func (p *Publisher) Status(nodeID api.NodeID, status api.NodeStatus) {
	p.hub.Publish(api.NodeStatusEvent{
		Channel: p.channel,
		NodeID:  nodeID,
		Status:  status,
	})
}
