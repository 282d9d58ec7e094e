// Package server implements the HTTP API for the workflow engine
//
// This package provides REST endpoints for workflow persistence, manual
// and webhook triggering, schedule control, execution lookup, and a
// WebSocket stream of node status events
package server
