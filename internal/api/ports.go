// Package api defines ports (interfaces) for API server dependencies.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/lng-monitor/relay/internal/history"
	"github.com/lng-monitor/relay/internal/metrics"
	"github.com/lng-monitor/relay/internal/snapshot"
	"github.com/lng-monitor/relay/internal/telemetry"
)

// HubPort defines the minimal interface the API needs from the broadcast hub.
type HubPort interface {
	Attach() (*telemetry.Consumer, error)
	Detach(*telemetry.Consumer)
	HandleMessage(consumer *telemetry.Consumer, raw []byte) (*telemetry.Message, error)
	Current() snapshot.Snapshot
	Count() int
}

// HistoryPort defines the read side of the snapshot history.
type HistoryPort interface {
	Series(ctx context.Context, equipmentID, limit int) (*history.Result, error)
}

// MetricsPort defines the instrumentation the API reports to.
type MetricsPort interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
	MalformedMessage()
	Handler() http.Handler
}

// Compile-time assertions for port conformance
var _ HubPort = (*telemetry.Hub)(nil)
var _ HistoryPort = (*history.Store)(nil)
var _ MetricsPort = (*metrics.Metrics)(nil)
