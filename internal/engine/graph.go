package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nodebase/engine/pkg/api"
)

type (
	// Graph is the validated, indexed form of a workflow used by a run. It
	// provides the trigger entry point, node lookup by ID, and live edge
	// routing; the walk itself follows edges node by node
	Graph struct {
		trigger  *api.Node
		nodes    map[api.NodeID]*api.Node
		outgoing map[api.NodeID][]api.Connection
	}

	dfsColor uint8
)

const (
	colorWhite dfsColor = iota
	colorGray
	colorBlack
)

var ErrGraphCycle = errors.New("cycle among default connections")

// NewGraph validates a workflow and builds its traversal indexes. It fails
// when the workflow has zero or multiple trigger nodes, a connection
// references a missing node, or a true cycle exists among default
// (unlabeled) edges
func NewGraph(wf *api.Workflow) (*Graph, error) {
	if err := wf.Validate(); err != nil {
		return nil, err
	}

	trigger, err := wf.TriggerNode()
	if err != nil {
		return nil, err
	}

	g := &Graph{
		trigger:  trigger,
		nodes:    make(map[api.NodeID]*api.Node, len(wf.Nodes)),
		outgoing: map[api.NodeID][]api.Connection{},
	}
	for _, n := range wf.Nodes {
		g.nodes[n.ID] = n
	}
	for _, c := range wf.Connections {
		g.outgoing[c.FromNodeID] = append(g.outgoing[c.FromNodeID], c)
	}
	for _, conns := range g.outgoing {
		slices.SortFunc(conns, func(a, b api.Connection) int {
			if a.ID < b.ID {
				return -1
			}
			if a.ID > b.ID {
				return 1
			}
			return 0
		})
	}

	if err := g.checkDefaultCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// Trigger returns the workflow's single entry-point node
func (g *Graph) Trigger() *api.Node {
	return g.trigger
}

// Node returns the node with the given ID, or nil
func (g *Graph) Node(id api.NodeID) *api.Node {
	return g.nodes[id]
}

// Next resolves the node that follows the given one. A non-empty branch
// selects the outgoing connection with that label; an empty branch selects
// the default (unlabeled) connection. When multiple candidates exist the
// connection with the lowest ID wins; connections are kept sorted, so the
// first match is deterministic. An empty result is a graceful end of path
func (g *Graph) Next(id api.NodeID, branch string) api.NodeID {
	for _, c := range g.outgoing[id] {
		if c.Output == branch {
			return c.ToNodeID
		}
	}
	return ""
}

// checkDefaultCycles detects true cycles among default edges at validation
// time rather than relying solely on the runtime step bound. Labeled
// branch edges are excluded; a loop closed through a condition branch is
// caught by the step bound instead
func (g *Graph) checkDefaultCycles() error {
	colors := make(map[api.NodeID]dfsColor, len(g.nodes))

	var visit func(id api.NodeID) error
	visit = func(id api.NodeID) error {
		colors[id] = colorGray
		for _, c := range g.outgoing[id] {
			if c.Output != "" {
				continue
			}
			switch colors[c.ToNodeID] {
			case colorGray:
				return fmt.Errorf("%w: %s -> %s",
					ErrGraphCycle, id, c.ToNodeID)
			case colorWhite:
				if err := visit(c.ToNodeID); err != nil {
					return err
				}
			}
		}
		colors[id] = colorBlack
		return nil
	}

	for id := range g.nodes {
		if colors[id] == colorWhite {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
