// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// HTTP metrics
	ObserveRequestDuration(duration time.Duration)
	IncValidationFailure(source string) // source: "param", "query" or "body"
	IncRateLimited()

	// User cache metrics
	IncUserCacheHit()
	IncUserCacheMiss()

	// User management metrics
	IncUserCreated()
	IncUserUpdated()
	IncUserDeleted()
	IncLogin(status string) // status: "success" or "failed"

	// Task management metrics
	IncTaskCreated()
	IncTaskUpdated()
	IncTaskDeleted()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
