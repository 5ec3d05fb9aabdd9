// Package api implements the HTTP and WebSocket front end of the LNG telemetry relay.
//
// The read API wraps every payload in the {code, message, data, timestamp}
// envelope. The WebSocket endpoint bridges one socket to one hub consumer:
// a write pump owns every socket write and a read pump feeds inbound messages
// to the hub.
package api
