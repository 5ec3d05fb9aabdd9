package api

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lng-monitor/relay/internal/catalog"
	"github.com/lng-monitor/relay/internal/config"
	"github.com/lng-monitor/relay/internal/history"
	"github.com/lng-monitor/relay/internal/snapshot"
	"github.com/lng-monitor/relay/internal/telemetry"
)

// testHubConfig ticks fast enough for socket tests.
func testHubConfig() *config.HubConfig {
	return &config.HubConfig{
		TickInterval:   20 * time.Millisecond,
		SendTimeout:    50 * time.Millisecond,
		ConsumerBuffer: 8,
		StopTimeout:    time.Second,
		Seed:           11,
	}
}

func newTestGenerator() *snapshot.Generator {
	return snapshot.NewGenerator(catalog.Default(), 11)
}

// setupAPITest creates a fully wired API test environment around a running hub.
func setupAPITest(t *testing.T) (*Server, *telemetry.Hub, *httptest.Server) {
	t.Helper()

	hub := telemetry.NewHub(testHubConfig(), newTestGenerator())
	hub.Start()
	t.Cleanup(hub.Stop)

	server := NewServer(hub, catalog.Default(), config.Baseline().Server)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return server, hub, ts
}

// fakeHistory serves canned history results.
type fakeHistory struct {
	mu     sync.Mutex
	result *history.Result
	err    error
	calls  []historyCall
}

type historyCall struct {
	equipmentID int
	limit       int
}

func (f *fakeHistory) Series(ctx context.Context, equipmentID, limit int) (*history.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, historyCall{equipmentID: equipmentID, limit: limit})
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeHistory) lastCall() historyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return historyCall{}
	}
	return f.calls[len(f.calls)-1]
}
