package handler

import (
	"fmt"
	"net/http"

	"github.com/taskflow/taskflow/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
//
// GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "taskflow_http_request_duration_seconds_count %d\n", snap.RequestDurationCount)
	writeMetric(w, "taskflow_http_request_duration_seconds_sum %.6f\n", float64(snap.RequestDurationTotalNs)/1e9)
	writeMetric(w, "taskflow_http_rate_limited_total %d\n", snap.RateLimited)

	for _, source := range metrics.ValidationSources {
		writeMetric(w, "taskflow_validation_failures_total{source=%q} %d\n", source, snap.ValidationFailures[source])
	}

	writeMetric(w, "taskflow_user_cache_hits_total %d\n", snap.UserCacheHits)
	writeMetric(w, "taskflow_user_cache_misses_total %d\n", snap.UserCacheMisses)

	writeMetric(w, "taskflow_users_created_total %d\n", snap.UsersCreated)
	writeMetric(w, "taskflow_users_updated_total %d\n", snap.UsersUpdated)
	writeMetric(w, "taskflow_users_deleted_total %d\n", snap.UsersDeleted)
	writeMetric(w, "taskflow_logins_total{status=\"success\"} %d\n", snap.LoginsSuccess)
	writeMetric(w, "taskflow_logins_total{status=\"failed\"} %d\n", snap.LoginsFailed)

	writeMetric(w, "taskflow_tasks_created_total %d\n", snap.TasksCreated)
	writeMetric(w, "taskflow_tasks_updated_total %d\n", snap.TasksUpdated)
	writeMetric(w, "taskflow_tasks_deleted_total %d\n", snap.TasksDeleted)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
