// Package metrics provides Prometheus metrics for the futar client.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for TransitRequestsTotal.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeStatus    = "bad_status"
	OutcomeThrottled = "throttled"
)

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// Outbound transit API metrics
	TransitRequestsTotal   *prometheus.CounterVec
	TransitRequestDuration *prometheus.HistogramVec

	// Presentation flow metrics
	FlowTransitionsTotal  *prometheus.CounterVec
	StaleCompletionsTotal *prometheus.CounterVec
	RetriesTotal          *prometheus.CounterVec

	// Debug server metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WSClients           prometheus.Gauge

	// Settings database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	logger *slog.Logger

	// collectorStarted prevents spawning multiple collector goroutines
	collectorStarted atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and registers all metrics with a new registry.
func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates metrics with a logger for error reporting.
func NewWithLogger(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	transitRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futar_transit_requests_total",
			Help: "Total number of transit API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	transitRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "futar_transit_request_duration_seconds",
			Help:    "Transit API request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	flowTransitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futar_flow_transitions_total",
			Help: "View state transitions by flow and target state",
		},
		[]string{"flow", "state"},
	)

	staleCompletionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futar_stale_completions_total",
			Help: "Completions discarded because their flow had moved on",
		},
		[]string{"flow"},
	)

	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futar_retries_total",
			Help: "Retries replayed from the shared retry slot",
		},
		[]string{"flow"},
	)

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futar_http_requests_total",
			Help: "Total number of debug server requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "futar_http_request_duration_seconds",
			Help:    "Debug server request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	wsClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "futar_ws_clients",
		Help: "Number of connected render stream clients",
	})

	dbConnectionsOpen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "futar_settings_db_connections_open",
		Help: "Number of open settings database connections",
	})

	dbConnectionsInUse := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "futar_settings_db_connections_in_use",
		Help: "Number of settings database connections currently in use",
	})

	dbConnectionsIdle := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "futar_settings_db_connections_idle",
		Help: "Number of idle settings database connections",
	})

	dbWaitSecondsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "futar_settings_db_wait_seconds_total",
		Help: "Total time blocked waiting for a settings database connection",
	})

	registry.MustRegister(
		transitRequestsTotal,
		transitRequestDuration,
		flowTransitionsTotal,
		staleCompletionsTotal,
		retriesTotal,
		httpRequestsTotal,
		httpRequestDuration,
		wsClients,
		dbConnectionsOpen,
		dbConnectionsInUse,
		dbConnectionsIdle,
		dbWaitSecondsTotal,
	)

	return &Metrics{
		Registry:               registry,
		TransitRequestsTotal:   transitRequestsTotal,
		TransitRequestDuration: transitRequestDuration,
		FlowTransitionsTotal:   flowTransitionsTotal,
		StaleCompletionsTotal:  staleCompletionsTotal,
		RetriesTotal:           retriesTotal,
		HTTPRequestsTotal:      httpRequestsTotal,
		HTTPRequestDuration:    httpRequestDuration,
		WSClients:              wsClients,
		DBConnectionsOpen:      dbConnectionsOpen,
		DBConnectionsInUse:     dbConnectionsInUse,
		DBConnectionsIdle:      dbConnectionsIdle,
		DBWaitSecondsTotal:     dbWaitSecondsTotal,
		logger:                 logger,
	}
}

// ObserveTransitRequest records one outbound request. Safe on a nil receiver.
func (m *Metrics) ObserveTransitRequest(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TransitRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.TransitRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveTransition counts a view state change. Safe on a nil receiver.
func (m *Metrics) ObserveTransition(flow, state string) {
	if m == nil {
		return
	}
	m.FlowTransitionsTotal.WithLabelValues(flow, state).Inc()
}

// ObserveStale counts a discarded completion. Safe on a nil receiver.
func (m *Metrics) ObserveStale(flow string) {
	if m == nil {
		return
	}
	m.StaleCompletionsTotal.WithLabelValues(flow).Inc()
}

// ObserveRetry counts a replayed flow. Safe on a nil receiver.
func (m *Metrics) ObserveRetry(flow string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(flow).Inc()
}

// SetWSClients records the number of render stream clients. Safe on a nil
// receiver.
func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.WSClients.Set(float64(n))
}

// StartDBStatsCollector starts a goroutine that periodically copies the
// settings database pool statistics into the DB gauges.
// It is idempotent; call Shutdown to stop it.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}

	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	var lastWaitDuration time.Duration

	// Add to WaitGroup before exposing cancel to avoid a race with Shutdown
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil && m.logger != nil {
				m.logger.Error("panic in DB stats collector", "error", r)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.collect(db, &lastWaitDuration)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Metrics) collect(db *sql.DB, lastWait *time.Duration) {
	stats := db.Stats()
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))

	if delta := stats.WaitDuration - *lastWait; delta > 0 {
		m.DBWaitSecondsTotal.Add(delta.Seconds())
	}
	*lastWait = stats.WaitDuration
}

// Shutdown stops the DB stats collector goroutine and waits for it to exit.
// Safe to call multiple times and on a nil receiver.
func (m *Metrics) Shutdown() {
	if m == nil {
		return
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
