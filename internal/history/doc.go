// Package history implements the snapshot history store and recorder for the
// relay. The recorder is an ordinary hub consumer; the store keeps one row per
// parameter value and serves per-parameter series with summary statistics.
package history
