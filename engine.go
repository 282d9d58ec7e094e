// Package engine identifies the Nodebase engine build
package engine

const (
	// Name is the service name reported in logs
	Name = "nodebase-engine"

	// Version is the build version reported in logs
	Version = "0.4.0"
)
