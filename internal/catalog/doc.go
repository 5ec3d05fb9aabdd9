// Package catalog implements the instrument catalog for the LNG telemetry relay.
//
// The catalog is the ordered, immutable list of instruments whose readings the
// relay simulates. It is loaded once at startup, either from a YAML file or from
// the built-in laboratory inventory, and is never mutated afterwards.
package catalog
