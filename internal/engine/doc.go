// Package engine implements the core workflow execution engine
//
// This package contains the run state machine that walks a workflow graph
// node by node, the durable step runner, the executor registry, and the
// cron-driven schedule runner
package engine
