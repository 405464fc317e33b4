package actorcore

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsSnapshot is an immutable value copy of one actor's counters at the
// instant it was taken.
type MetricsSnapshot struct {
	Handle          Handle
	Name            string
	ImplKind        string
	QueueLength     int64
	Processed       int64
	Exceptions      int64
	AverageTicks    float64
	LastEnqueuedAt  time.Time
	LastProcessedAt time.Time
	CreatedAt       time.Time
	TraceEnabled    bool
}

// metricsEntry holds the live, atomically-updated counters for one actor.
// All counters use atomic instructions per spec.md's concurrency model; no
// third-party metrics library is reached for here — see DESIGN.md.
type metricsEntry struct {
	handle   Handle
	name     atomic.Value // string
	implKind atomic.Value // string

	queueLength  atomic.Int64
	processed    atomic.Int64
	exceptions   atomic.Int64
	totalTicks   atomic.Int64 // nanoseconds
	lastEnqueued atomic.Int64 // unix nano
	lastProcess  atomic.Int64 // unix nano
	createdAt    time.Time
	traceBit     atomic.Bool
}

// MetricsRegistry is a lock-free counters table keyed by handle, queried
// by operators via TrySnapshot / SnapshotAll.
type MetricsRegistry struct {
	entries sync.Map // Handle -> *metricsEntry
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{}
}

// Register binds handle -> (name, implKind, created-at). Re-registering an
// already-known handle replaces its entry (used when an actor is
// recreated after a Kill frees the handle up for reuse by the system,
// though the system itself never reuses handles within one process run).
func (m *MetricsRegistry) Register(h Handle, name, implKind string) {
	e := &metricsEntry{handle: h, createdAt: time.Now()}
	e.name.Store(name)
	e.implKind.Store(implKind)
	m.entries.Store(h, e)
}

// Unregister removes the entry. A no-op for an unknown handle.
func (m *MetricsRegistry) Unregister(h Handle) {
	m.entries.Delete(h)
}

func (m *MetricsRegistry) get(h Handle) *metricsEntry {
	v, ok := m.entries.Load(h)
	if !ok {
		return nil
	}
	return v.(*metricsEntry)
}

// Enqueue bumps the queue length and last-enqueued timestamp. A no-op for
// an unknown handle.
func (m *MetricsRegistry) Enqueue(h Handle) {
	e := m.get(h)
	if e == nil {
		return
	}
	e.queueLength.Add(1)
	e.lastEnqueued.Store(time.Now().UnixNano())
}

// Dequeue decrements the queue length, clamped at zero. A no-op for an
// unknown handle.
func (m *MetricsRegistry) Dequeue(h Handle) {
	e := m.get(h)
	if e == nil {
		return
	}
	for {
		cur := e.queueLength.Load()
		if cur <= 0 {
			return
		}
		if e.queueLength.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Processed records one successfully or unsuccessfully handled message and
// its processing duration. A no-op for an unknown handle.
func (m *MetricsRegistry) Processed(h Handle, d time.Duration, failed bool) {
	e := m.get(h)
	if e == nil {
		return
	}
	e.processed.Add(1)
	e.totalTicks.Add(d.Nanoseconds())
	e.lastProcess.Store(time.Now().UnixNano())
	if failed {
		e.exceptions.Add(1)
	}
}

// EnableTrace turns tracing on for handle. Returns true iff the state
// actually changed (compare-and-swap semantics), matching the round-trip
// law: enable followed by enable returns changed then unchanged.
func (m *MetricsRegistry) EnableTrace(h Handle) bool {
	e := m.get(h)
	if e == nil {
		return false
	}
	return e.traceBit.CompareAndSwap(false, true)
}

// DisableTrace turns tracing off for handle. Returns true iff the state
// actually changed.
func (m *MetricsRegistry) DisableTrace(h Handle) bool {
	e := m.get(h)
	if e == nil {
		return false
	}
	return e.traceBit.CompareAndSwap(true, false)
}

// TrySnapshot returns a value-copy snapshot for handle, or false if
// unknown.
func (m *MetricsRegistry) TrySnapshot(h Handle) (MetricsSnapshot, bool) {
	e := m.get(h)
	if e == nil {
		return MetricsSnapshot{}, false
	}
	return snapshotOf(e), true
}

// SnapshotAll returns a point-in-time slice of every registered actor's
// snapshot.
func (m *MetricsRegistry) SnapshotAll() []MetricsSnapshot {
	var out []MetricsSnapshot
	m.entries.Range(func(_, v any) bool {
		out = append(out, snapshotOf(v.(*metricsEntry)))
		return true
	})
	return out
}

func snapshotOf(e *metricsEntry) MetricsSnapshot {
	processed := e.processed.Load()
	var avg float64
	if processed > 0 {
		avg = float64(e.totalTicks.Load()) / float64(processed)
	}
	name, _ := e.name.Load().(string)
	impl, _ := e.implKind.Load().(string)

	var lastEnq, lastProc time.Time
	if v := e.lastEnqueued.Load(); v != 0 {
		lastEnq = time.Unix(0, v)
	}
	if v := e.lastProcess.Load(); v != 0 {
		lastProc = time.Unix(0, v)
	}

	return MetricsSnapshot{
		Handle:          e.handle,
		Name:            name,
		ImplKind:        impl,
		QueueLength:     e.queueLength.Load(),
		Processed:       processed,
		Exceptions:      e.exceptions.Load(),
		AverageTicks:    avg,
		LastEnqueuedAt:  lastEnq,
		LastProcessedAt: lastProc,
		CreatedAt:       e.createdAt,
		TraceEnabled:    e.traceBit.Load(),
	}
}
