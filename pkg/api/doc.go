// Package api defines the core data types and interfaces for the engine
//
// This package contains all the shared types used across the service,
// including workflow graphs, execution records, checkpoints, the executor
// contract, trigger events, and tagged error kinds
package api
