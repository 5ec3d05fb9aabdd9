//
//
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relay"

// Metrics holds the relay's Prometheus collectors on a private registry.
// It satisfies telemetry.Observer and fetchcache.Observer.
type Metrics struct {
	registry *prometheus.Registry

	consumers     prometheus.Gauge
	attached      prometheus.Counter
	detached      *prometheus.CounterVec
	ticks         prometheus.Counter
	delivered     prometheus.Counter
	sendFailures  prometheus.Counter
	tickDuration  prometheus.Histogram
	malformed     prometheus.Counter
	cacheRequests *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	historyRows   prometheus.Counter
	historyErrors prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		consumers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_consumers",
			Help:      "Consumers currently attached to the broadcast hub.",
		}),
		attached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_consumers_attached_total",
			Help:      "Consumers attached since start.",
		}),
		detached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_consumers_detached_total",
			Help:      "Consumers removed since start, by reason.",
		}, []string{"reason"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_ticks_total",
			Help:      "Hub ticks, including ticks with no consumers.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_snapshots_delivered_total",
			Help:      "Update snapshots accepted by consumer channels.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_send_failures_total",
			Help:      "Sends that exceeded the send timeout.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hub_tick_duration_seconds",
			Help:      "Time to fan one snapshot out to every consumer.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_malformed_messages_total",
			Help:      "Inbound WebSocket messages that could not be handled.",
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by outcome (hit, miss, joined).",
		}, []string{"outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fetches_total",
			Help:      "Upstream fetches by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_fetch_duration_seconds",
			Help:      "Upstream fetch latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		historyRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_rows_written_total",
			Help:      "Parameter values persisted by the history recorder.",
		}),
		historyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_write_errors_total",
			Help:      "Snapshots the history recorder failed to persist.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.consumers, m.attached, m.detached, m.ticks, m.delivered, m.sendFailures,
		m.tickDuration, m.malformed, m.cacheRequests, m.fetches, m.fetchDuration,
		m.historyRows, m.historyErrors, m.httpRequests, m.httpDuration,
	)

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hub observer

func (m *Metrics) ConsumerAttached(active int) {
	m.attached.Inc()
	m.consumers.Set(float64(active))
}

func (m *Metrics) ConsumerDetached(active int, reason string) {
	m.detached.WithLabelValues(reason).Inc()
	m.consumers.Set(float64(active))
}

func (m *Metrics) TickCompleted(delivered, failed int, elapsed time.Duration) {
	m.ticks.Inc()
	m.delivered.Add(float64(delivered))
	m.sendFailures.Add(float64(failed))
	m.tickDuration.Observe(elapsed.Seconds())
}

// MalformedMessage counts an inbound message rejected by the hub.
func (m *Metrics) MalformedMessage() {
	m.malformed.Inc()
}

// Cache observer

func (m *Metrics) CacheHit()    { m.cacheRequests.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss()   { m.cacheRequests.WithLabelValues("miss").Inc() }
func (m *Metrics) FetchJoined() { m.cacheRequests.WithLabelValues("joined").Inc() }

func (m *Metrics) FetchCompleted(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fetches.WithLabelValues(result).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}

// History

func (m *Metrics) RowsWritten(rows int, err error) {
	if err != nil {
		m.historyErrors.Inc()
		return
	}
	m.historyRows.Add(float64(rows))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
