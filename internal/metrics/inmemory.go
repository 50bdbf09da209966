package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RequestDurationCount   uint64
	RequestDurationTotalNs int64
	ValidationFailures     map[string]uint64
	RateLimited            uint64

	UserCacheHits   uint64
	UserCacheMisses uint64

	UsersCreated  uint64
	UsersUpdated  uint64
	UsersDeleted  uint64
	LoginsSuccess uint64
	LoginsFailed  uint64

	TasksCreated uint64
	TasksUpdated uint64
	TasksDeleted uint64
}

// ValidationSources lists the labels used by IncValidationFailure.
var ValidationSources = []string{"param", "query", "body"}

// InMemoryRecorder keeps counters in process memory.
// It backs the /metrics endpoint and is used in tests.
type InMemoryRecorder struct {
	requestDurationCount   uint64
	requestDurationTotalNs int64
	validationParam        uint64
	validationQuery        uint64
	validationBody         uint64
	rateLimited            uint64

	userCacheHits   uint64
	userCacheMisses uint64

	usersCreated  uint64
	usersUpdated  uint64
	usersDeleted  uint64
	loginsSuccess uint64
	loginsFailed  uint64

	tasksCreated uint64
	tasksUpdated uint64
	tasksDeleted uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		RequestDurationCount:   atomic.LoadUint64(&m.requestDurationCount),
		RequestDurationTotalNs: atomic.LoadInt64(&m.requestDurationTotalNs),
		ValidationFailures: map[string]uint64{
			"param": atomic.LoadUint64(&m.validationParam),
			"query": atomic.LoadUint64(&m.validationQuery),
			"body":  atomic.LoadUint64(&m.validationBody),
		},
		RateLimited:     atomic.LoadUint64(&m.rateLimited),
		UserCacheHits:   atomic.LoadUint64(&m.userCacheHits),
		UserCacheMisses: atomic.LoadUint64(&m.userCacheMisses),
		UsersCreated:    atomic.LoadUint64(&m.usersCreated),
		UsersUpdated:    atomic.LoadUint64(&m.usersUpdated),
		UsersDeleted:    atomic.LoadUint64(&m.usersDeleted),
		LoginsSuccess:   atomic.LoadUint64(&m.loginsSuccess),
		LoginsFailed:    atomic.LoadUint64(&m.loginsFailed),
		TasksCreated:    atomic.LoadUint64(&m.tasksCreated),
		TasksUpdated:    atomic.LoadUint64(&m.tasksUpdated),
		TasksDeleted:    atomic.LoadUint64(&m.tasksDeleted),
	}
}

// ObserveRequestDuration records the duration of an HTTP request.
func (m *InMemoryRecorder) ObserveRequestDuration(duration time.Duration) {
	atomic.AddUint64(&m.requestDurationCount, 1)
	atomic.AddInt64(&m.requestDurationTotalNs, duration.Nanoseconds())
}

// IncValidationFailure counts a rejected request. Unknown sources count as body.
func (m *InMemoryRecorder) IncValidationFailure(source string) {
	switch source {
	case "param":
		atomic.AddUint64(&m.validationParam, 1)
	case "query":
		atomic.AddUint64(&m.validationQuery, 1)
	default:
		atomic.AddUint64(&m.validationBody, 1)
	}
}

// IncRateLimited counts a request rejected by the rate limiter.
func (m *InMemoryRecorder) IncRateLimited() {
	atomic.AddUint64(&m.rateLimited, 1)
}

// IncUserCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncUserCacheHit() {
	atomic.AddUint64(&m.userCacheHits, 1)
}

// IncUserCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncUserCacheMiss() {
	atomic.AddUint64(&m.userCacheMisses, 1)
}

func (m *InMemoryRecorder) IncUserCreated() { atomic.AddUint64(&m.usersCreated, 1) }
func (m *InMemoryRecorder) IncUserUpdated() { atomic.AddUint64(&m.usersUpdated, 1) }
func (m *InMemoryRecorder) IncUserDeleted() { atomic.AddUint64(&m.usersDeleted, 1) }

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == "success" {
		atomic.AddUint64(&m.loginsSuccess, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

func (m *InMemoryRecorder) IncTaskCreated() { atomic.AddUint64(&m.tasksCreated, 1) }
func (m *InMemoryRecorder) IncTaskUpdated() { atomic.AddUint64(&m.tasksUpdated, 1) }
func (m *InMemoryRecorder) IncTaskDeleted() { atomic.AddUint64(&m.tasksDeleted, 1) }
