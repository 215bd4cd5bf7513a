package replication

import (
	"expvar"
	"fmt"
	"sync/atomic"
)

// BufferQuota tracks the aggregate size, in bytes, of WAL entries held
// in-memory by every source across every peer. Acquire always counts the
// bytes it's given; the boolean it returns is advisory, telling the caller
// whether the total is now at or above the configured ceiling so it can
// apply its own backpressure (pausing enqueueLog, warning, etc.) — the
// quota itself never refuses a reservation.
type BufferQuota struct {
	limit   int64
	used    atomic.Int64
	metrics *expvar.Int
}

// NewBufferQuota creates a quota bounded at limitBytes. A non-positive limit
// disables the bound: Acquire always reports the counter as under limit.
func NewBufferQuota(limitBytes int64, metrics *expvar.Int) *BufferQuota {
	return &BufferQuota{limit: limitBytes, metrics: metrics}
}

// Acquire reserves n bytes against the quota unconditionally and reports
// whether the running total is now at or above the configured limit. A
// negative n is a precondition violation, not a quota decision.
func (q *BufferQuota) Acquire(n int64) (bool, error) {
	if n < 0 {
		return false, fmt.Errorf("replication: buffer quota acquire of negative size %d", n)
	}
	used := q.used.Add(n)
	q.publish()
	if q.limit <= 0 {
		return false, nil
	}
	return used >= q.limit, nil
}

// Release returns n previously acquired bytes to the quota.
func (q *BufferQuota) Release(n int64) {
	q.used.Add(-n)
	q.publish()
}

// Used reports the number of bytes currently reserved.
func (q *BufferQuota) Used() int64 {
	return q.used.Load()
}

// Limit reports the configured ceiling, or 0 if unbounded.
func (q *BufferQuota) Limit() int64 {
	return q.limit
}

func (q *BufferQuota) publish() {
	if q.metrics != nil {
		q.metrics.Set(q.used.Load())
	}
}
