// Package metrics implements the Prometheus instrumentation for the relay.
package metrics
