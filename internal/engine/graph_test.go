package engine_test

import (
	"testing"

	"github.com/nodebase/engine/internal/assert"
	"github.com/nodebase/engine/internal/engine"
	"github.com/nodebase/engine/pkg/api"
)

func TestNewGraphValid(t *testing.T) {
	as := assert.New(t)

	g, err := engine.NewGraph(linearWorkflow())
	as.NoError(err)
	as.Equal(api.NodeID("trigger"), g.Trigger().ID)
	as.NotNil(g.Node("b"))
	as.Nil(g.Node("missing"))
}

func TestNewGraphNoTrigger(t *testing.T) {
	as := assert.New(t)

	wf := &api.Workflow{
		ID: "wf-1",
		Nodes: []*api.Node{
			{ID: "a", Type: api.NodeHTTPRequest},
		},
	}
	_, err := engine.NewGraph(wf)
	as.ErrorIs(err, api.ErrNoTriggerNode)
}

func TestNewGraphMultipleTriggers(t *testing.T) {
	as := assert.New(t)

	wf := &api.Workflow{
		ID: "wf-1",
		Nodes: []*api.Node{
			{ID: "t1", Type: api.NodeManualTrigger},
			{ID: "t2", Type: api.NodeWebhookTrigger},
		},
	}
	_, err := engine.NewGraph(wf)
	as.ErrorIs(err, api.ErrMultipleTriggers)
}

func TestNewGraphUnknownEndpoint(t *testing.T) {
	as := assert.New(t)

	wf := &api.Workflow{
		ID: "wf-1",
		Nodes: []*api.Node{
			{ID: "trigger", Type: api.NodeManualTrigger},
		},
		Connections: []api.Connection{
			{ID: "c1", FromNodeID: "trigger", ToNodeID: "ghost"},
		},
	}
	_, err := engine.NewGraph(wf)
	as.ErrorIs(err, api.ErrUnknownEndpoint)
}

func TestNewGraphRejectsDefaultCycle(t *testing.T) {
	as := assert.New(t)

	wf := &api.Workflow{
		ID: "wf-1",
		Nodes: []*api.Node{
			{ID: "trigger", Type: api.NodeManualTrigger},
			{ID: "a", Type: api.NodeHTTPRequest},
			{ID: "b", Type: api.NodeHTTPRequest},
		},
		Connections: []api.Connection{
			{ID: "c1", FromNodeID: "trigger", ToNodeID: "a"},
			{ID: "c2", FromNodeID: "a", ToNodeID: "b"},
			{ID: "c3", FromNodeID: "b", ToNodeID: "a"},
		},
	}
	_, err := engine.NewGraph(wf)
	as.ErrorIs(err, engine.ErrGraphCycle)
}

func TestNewGraphAllowsBranchLoop(t *testing.T) {
	as := assert.New(t)

	// a loop closed through a labeled branch edge is legal at validation
	// time; the runtime step bound arrests it
	wf := &api.Workflow{
		ID: "wf-1",
		Nodes: []*api.Node{
			{ID: "trigger", Type: api.NodeManualTrigger},
			{ID: "check", Type: api.NodeCondition},
			{ID: "work", Type: api.NodeHTTPRequest},
		},
		Connections: []api.Connection{
			{ID: "c1", FromNodeID: "trigger", ToNodeID: "check"},
			{
				ID: "c2", FromNodeID: "check",
				Output: api.BranchTrue, ToNodeID: "work",
			},
			{ID: "c3", FromNodeID: "work", ToNodeID: "check"},
		},
	}
	_, err := engine.NewGraph(wf)
	as.NoError(err)
}

func TestNextBranchRouting(t *testing.T) {
	as := assert.New(t)

	wf := &api.Workflow{
		ID: "wf-1",
		Nodes: []*api.Node{
			{ID: "trigger", Type: api.NodeManualTrigger},
			{ID: "check", Type: api.NodeCondition},
			{ID: "yes", Type: api.NodeHTTPRequest},
			{ID: "no", Type: api.NodeHTTPRequest},
		},
		Connections: []api.Connection{
			{ID: "c1", FromNodeID: "trigger", ToNodeID: "check"},
			{
				ID: "c2", FromNodeID: "check",
				Output: api.BranchTrue, ToNodeID: "yes",
			},
			{
				ID: "c3", FromNodeID: "check",
				Output: api.BranchFalse, ToNodeID: "no",
			},
		},
	}
	g, err := engine.NewGraph(wf)
	as.NoError(err)

	as.Equal(api.NodeID("yes"), g.Next("check", api.BranchTrue))
	as.Equal(api.NodeID("no"), g.Next("check", api.BranchFalse))
	as.Equal(api.NodeID(""), g.Next("yes", ""))
}

func TestNextLowestConnectionIDWins(t *testing.T) {
	as := assert.New(t)

	wf := &api.Workflow{
		ID: "wf-1",
		Nodes: []*api.Node{
			{ID: "trigger", Type: api.NodeManualTrigger},
			{ID: "first", Type: api.NodeHTTPRequest},
			{ID: "second", Type: api.NodeHTTPRequest},
		},
		Connections: []api.Connection{
			{ID: "c2", FromNodeID: "trigger", ToNodeID: "second"},
			{ID: "c1", FromNodeID: "trigger", ToNodeID: "first"},
		},
	}
	g, err := engine.NewGraph(wf)
	as.NoError(err)

	as.Equal(api.NodeID("first"), g.Next("trigger", ""))
}

func linearWorkflow() *api.Workflow {
	return &api.Workflow{
		ID: "wf-linear",
		Nodes: []*api.Node{
			{ID: "trigger", Type: api.NodeManualTrigger},
			{ID: "a", Type: api.NodeHTTPRequest},
			{ID: "b", Type: api.NodeHTTPRequest},
		},
		Connections: []api.Connection{
			{ID: "c1", FromNodeID: "trigger", ToNodeID: "a"},
			{ID: "c2", FromNodeID: "a", ToNodeID: "b"},
		},
	}
}
