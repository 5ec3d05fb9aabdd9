// Package telemetry implements the broadcast hub for the LNG telemetry relay.
//
// The hub owns the set of live consumers. Each consumer gets one bounded
// delivery channel that only the hub writes to: an "initial" snapshot at attach
// time, then one "update" snapshot per tick. A consumer that cannot accept a
// send within the configured bound is removed; the others are unaffected.
//
// Missed snapshots are never replayed. Sends to different consumers are not
// ordered relative to each other.
package telemetry
