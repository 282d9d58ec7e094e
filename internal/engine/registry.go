package engine

import "github.com/nodebase/engine/pkg/api"

// Registry maps a node-type tag to the executor implementing it
type Registry struct {
	executors map[api.NodeType]api.Executor
}

// NewRegistry creates an empty executor registry
func NewRegistry() *Registry {
	return &Registry{
		executors: map[api.NodeType]api.Executor{},
	}
}

// Register installs an executor for a node type, replacing any previous
// registration
func (r *Registry) Register(t api.NodeType, e api.Executor) {
	r.executors[t] = e
}

// Lookup returns the executor for a node type. An unknown type is a
// non-retriable configuration error
func (r *Registry) Lookup(t api.NodeType) (api.Executor, error) {
	e, ok := r.executors[t]
	if !ok {
		return nil, api.ConfigErr("no executor registered for node type %s", t)
	}
	return e, nil
}
