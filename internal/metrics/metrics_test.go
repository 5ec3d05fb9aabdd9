package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lng-monitor/relay/internal/fetchcache"
	"github.com/lng-monitor/relay/internal/telemetry"
)

// Compile-time checks that Metrics plugs into both observer ports.
var (
	_ telemetry.Observer  = (*Metrics)(nil)
	_ fetchcache.Observer = (*Metrics)(nil)
)

func TestHubMetrics(t *testing.T) {
	m := New()

	m.ConsumerAttached(1)
	m.ConsumerAttached(2)
	if got := testutil.ToFloat64(m.consumers); got != 2 {
		t.Fatalf("expected consumers gauge 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.attached); got != 2 {
		t.Fatalf("expected attached counter 2, got %f", got)
	}

	m.ConsumerDetached(1, telemetry.ReasonTransportFailure)
	if got := testutil.ToFloat64(m.consumers); got != 1 {
		t.Fatalf("expected consumers gauge 1, got %f", got)
	}
	if got := testutil.ToFloat64(m.detached.WithLabelValues(telemetry.ReasonTransportFailure)); got != 1 {
		t.Fatalf("expected transport_failure detach 1, got %f", got)
	}

	m.TickCompleted(3, 1, 5*time.Millisecond)
	if got := testutil.ToFloat64(m.delivered); got != 3 {
		t.Fatalf("expected delivered 3, got %f", got)
	}
	if got := testutil.ToFloat64(m.sendFailures); got != 1 {
		t.Fatalf("expected send failures 1, got %f", got)
	}
	if samples := testutil.CollectAndCount(m.tickDuration); samples != 1 {
		t.Fatalf("expected tick histogram to record 1 series, got %d", samples)
	}

	m.MalformedMessage()
	if got := testutil.ToFloat64(m.malformed); got != 1 {
		t.Fatalf("expected malformed counter 1, got %f", got)
	}
}

func TestCacheMetrics(t *testing.T) {
	m := New()

	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.FetchJoined()
	m.FetchCompleted(time.Millisecond, nil)
	m.FetchCompleted(time.Millisecond, errors.New("boom"))

	cases := map[string]float64{"hit": 2, "miss": 1, "joined": 1}
	for outcome, want := range cases {
		if got := testutil.ToFloat64(m.cacheRequests.WithLabelValues(outcome)); got != want {
			t.Errorf("expected %s=%v, got %v", outcome, want, got)
		}
	}

	if got := testutil.ToFloat64(m.fetches.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed fetch, got %f", got)
	}
	if got := testutil.ToFloat64(m.fetches.WithLabelValues("ok")); got != 1 {
		t.Errorf("expected 1 successful fetch, got %f", got)
	}
}

func TestHistoryAndRequestMetrics(t *testing.T) {
	m := New()

	m.RowsWritten(17, nil)
	m.RowsWritten(0, errors.New("disk full"))
	if got := testutil.ToFloat64(m.historyRows); got != 17 {
		t.Errorf("expected 17 rows, got %f", got)
	}
	if got := testutil.ToFloat64(m.historyErrors); got != 1 {
		t.Errorf("expected 1 write error, got %f", got)
	}

	m.ObserveRequest("/health", 200, time.Millisecond)
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("/health", "200")); got != 1 {
		t.Errorf("expected 1 /health request, got %f", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ConsumerAttached(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "relay_hub_consumers 4") {
		t.Fatalf("expected relay_hub_consumers in exposition, got:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("expected Go runtime collector in exposition")
	}
}
