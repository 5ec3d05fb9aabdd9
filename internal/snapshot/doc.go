// Package snapshot produces telemetry snapshots from the instrument catalog.
//
// A snapshot is one complete, immutable set of simulated readings for every
// instrument, in catalog order. Generate is a pure function of the catalog,
// the random source and the timestamp; Generator wraps it with a seeded,
// goroutine-safe source for the hub.
package snapshot
