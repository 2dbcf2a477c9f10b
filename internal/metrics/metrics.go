// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_groups_sync_runs_total",
			Help: "Total number of sync runs by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "app_groups_sync_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	DegradedMembershipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_groups_sync_degraded_memberships_total",
			Help: "Membership lookups replaced by an empty list, by lookup outcome",
		},
		[]string{"outcome"},
	)

	SkippedGroupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_groups_sync_skipped_groups_total",
			Help: "Groups dropped under the skip failure policy, by lookup outcome",
		},
		[]string{"outcome"},
	)

	// Identity provider metrics
	OktaCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_groups_sync_okta_calls_total",
			Help: "Total number of Okta API calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Warehouse metrics
	RowsAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_groups_sync_rows_appended_total",
			Help: "Total number of rows appended by sink",
		},
		[]string{"sink"},
	)

	AppendFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_groups_sync_append_failures_total",
			Help: "Total number of failed appends by sink and kind (row_errors or persistence)",
		},
		[]string{"sink", "kind"},
	)

	// Notification metrics
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_groups_sync_notifications_total",
			Help: "Total number of sync notifications by notifier and status",
		},
		[]string{"notifier", "status"},
	)

	// HTTP metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_groups_sync_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "app_groups_sync_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(SyncRunsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(DegradedMembershipsTotal)
	prometheus.MustRegister(SkippedGroupsTotal)
	prometheus.MustRegister(OktaCallsTotal)
	prometheus.MustRegister(RowsAppendedTotal)
	prometheus.MustRegister(AppendFailuresTotal)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the time since it was created
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDurationVec records the elapsed seconds on the labelled child of a histogram vec
func (t *Timer) ObserveDurationVec(histogram *prometheus.HistogramVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
