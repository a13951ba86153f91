// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package metrics provides Prometheus metrics for the keeper daemon.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MKhiriev/go-offline-keeper/models"
)

var (
	// Sync outcome metrics
	syncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_sync_operations_total",
			Help: "Sync operations sent to the remote authority by outcome",
		},
		[]string{"data_type", "outcome"},
	)

	syncDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_sync_dropped_total",
			Help: "Operations dropped after exhausting attempts or evicted from a full queue",
		},
		[]string{"data_type", "reason"},
	)

	syncCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "keeper_sync_cycle_duration_seconds",
			Help:    "Duration of sync cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	syncCyclesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "keeper_sync_cycles_skipped_total",
			Help: "Sync cycles skipped because another cycle was running",
		},
	)

	// Queue and conflict metrics
	queueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keeper_sync_queue_size",
			Help: "Number of operations waiting in the sync queue",
		},
	)

	conflictsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keeper_conflicts_pending",
			Help: "Number of conflicts waiting for manual resolution",
		},
	)

	conflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_conflicts_total",
			Help: "Conflicts registered by resolution strategy",
		},
		[]string{"data_type", "strategy"},
	)

	// Cache metrics
	cacheReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_cache_reads_total",
			Help: "Reads served by source",
		},
		[]string{"data_type", "source"},
	)

	backgroundRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_background_refresh_total",
			Help: "Background refreshes by result",
		},
		[]string{"data_type", "result"},
	)

	// Network metrics
	networkOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keeper_network_online",
			Help: "1 when the remote authority is reachable",
		},
	)

	networkQuality = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keeper_network_quality",
			Help: "Estimated link quality from 0 (offline) to 4 (excellent)",
		},
	)

	networkLatency = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keeper_network_latency_milliseconds",
			Help: "Last measured round trip to the remote authority",
		},
	)

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_http_requests_total",
			Help: "Total number of control API requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keeper_http_request_duration_seconds",
			Help:    "Control API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Read sources.
const (
	SourceCache   = "cache"
	SourceNetwork = "network"
	SourceStale   = "stale"
	SourceMiss    = "miss"
)

// Drop reasons.
const (
	ReasonExhausted = "exhausted"
	ReasonEvicted   = "evicted"
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOutcome records the outcome of one sent operation.
func RecordOutcome(dataType string, outcome models.Outcome) {
	syncOperationsTotal.WithLabelValues(dataType, outcome.String()).Inc()
}

// RecordDropped records an operation removed from the queue without
// reaching the remote authority.
func RecordDropped(dataType, reason string) {
	syncDroppedTotal.WithLabelValues(dataType, reason).Inc()
}

// RecordCycle records a completed sync cycle.
func RecordCycle(duration time.Duration) {
	syncCycleDuration.Observe(duration.Seconds())
}

// RecordCycleSkipped records a trigger that found a cycle already running.
func RecordCycleSkipped() {
	syncCyclesSkipped.Inc()
}

// RecordConflict records a registered conflict. Pending conflicts use the
// "manual" strategy label.
func RecordConflict(dataType string, strategy models.ConflictResolution, resolved bool) {
	label := strategy.String()
	if !resolved || label == "" {
		label = models.Manual.String()
	}
	conflictsTotal.WithLabelValues(dataType, label).Inc()
}

// RecordRead records which source served a read.
func RecordRead(dataType, source string) {
	cacheReadsTotal.WithLabelValues(dataType, source).Inc()
}

// RecordBackgroundRefresh records a background refresh result.
func RecordBackgroundRefresh(dataType string, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	backgroundRefreshTotal.WithLabelValues(dataType, result).Inc()
}

// SetQueueSize sets the current sync queue length.
func SetQueueSize(n int) {
	queueSize.Set(float64(n))
}

// SetConflictsPending sets the number of unresolved conflicts.
func SetConflictsPending(n int) {
	conflictsPending.Set(float64(n))
}

// SetNetworkState publishes the network monitor state.
func SetNetworkState(state models.NetworkState) {
	online := 0.0
	if state.Online {
		online = 1
	}
	networkOnline.Set(online)
	networkQuality.Set(float64(state.Quality))
	networkLatency.Set(float64(state.LatencyMs))
}

// RecordHTTPRequest records a control API request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics. Paths are
// labelled with the chi route pattern to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(start))
	})
}
