//
//
package telemetry

import (
	"errors"
	"time"

	"github.com/lng-monitor/relay/internal/snapshot"
)

// Message types exchanged with consumers.
const (
	TypeInitial   = "initial"
	TypeUpdate    = "update"
	TypePing      = "ping"
	TypePong      = "pong"
	TypeSubscribe = "subscribe"
)

// timestampLayout renders millisecond UTC timestamps ("2024-01-15T08:00:00.000Z").
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrMalformedMessage is returned for inbound messages that cannot be decoded
	// or carry an unknown type. The connection stays open.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrTransportFailure marks a consumer removed because a send failed.
	ErrTransportFailure = errors.New("transport failure")

	// ErrHubStopped is returned by Attach after Stop, and is the removal
	// reason for consumers still attached at Stop.
	ErrHubStopped = errors.New("hub stopped")
)

// Message is an outbound message.
type Message struct {
	Type      string            `json:"type"`
	Data      snapshot.Snapshot `json:"data,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
}

// Inbound is a message received from a consumer.
type Inbound struct {
	Type         string `json:"type"`
	EquipmentIDs []any  `json:"equipmentIds,omitempty"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
