// Package history provides a bounded, thread-safe log of state records.
// The log is FIFO: when capacity is reached the oldest record is evicted.
package history

import (
	"sync"

	"github.com/hallam/sentinel/internal/logic"
)

// Log is a fixed-capacity chronological record store. Records are appended
// by the monitor worker and read by HTTP handlers, so access is
// mutex-guarded. The log lives as long as its monitor; it is cleared only by
// an explicit Reset, never implicitly on stop.
type Log struct {
	mu       sync.Mutex
	buf      []logic.StateRecord
	capacity int
	head     int // next write position
	count    int
}

// New creates a Log holding at most capacity records. Capacity must be
// positive.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1
	}
	return &Log{
		buf:      make([]logic.StateRecord, capacity),
		capacity: capacity,
	}
}

// Append adds a record, evicting the oldest when full.
func (l *Log) Append(rec logic.StateRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.head] = rec
	l.head = (l.head + 1) % l.capacity
	if l.count < l.capacity {
		l.count++
	}
}

// Len returns the number of stored records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Cap returns the configured capacity.
func (l *Log) Cap() int {
	return l.capacity
}

// Last returns the most recent record. The second return value is false when
// the log is empty.
func (l *Log) Last() (logic.StateRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return logic.StateRecord{}, false
	}
	idx := (l.head - 1 + l.capacity) % l.capacity
	return l.buf[idx], true
}

// Snapshot returns all stored records, oldest first.
func (l *Log) Snapshot() []logic.StateRecord {
	return l.LastN(0)
}

// LastN returns the most recent n records in chronological order. n <= 0 or
// n greater than the stored count returns everything.
func (l *Log) LastN(n int) []logic.StateRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return nil
	}
	if n <= 0 || n > l.count {
		n = l.count
	}
	out := make([]logic.StateRecord, n)
	start := (l.head - n + l.capacity) % l.capacity
	for i := 0; i < n; i++ {
		out[i] = l.buf[(start+i)%l.capacity]
	}
	return out
}

// Reset discards all stored records.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.head = 0
	l.count = 0
}
