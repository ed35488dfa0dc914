// Package timer provides a single-slot, restartable delay primitive used for
// both "turn off after delay" and "ignore re-triggers within window".
package timer

import (
	"sync"
	"time"
)

// Debounce is a single-slot timer. Arming while already armed replaces the
// pending deadline; it never stacks. At most one of {callback fired, cancel
// effective} wins when the two race.
type Debounce struct {
	mu       sync.Mutex
	t        *time.Timer
	deadline time.Time
	armed    bool
	gen      uint64
	now      func() time.Time
}

// New returns a disarmed timer.
func New() *Debounce {
	return &Debounce{now: time.Now}
}

// Arm schedules fn to run after d, cancelling any previously scheduled
// firing. Cancel-then-arm is atomic with respect to the expiry callback.
func (d *Debounce) Arm(dur time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.t != nil {
		d.t.Stop()
	}
	d.gen++
	gen := d.gen
	d.armed = true
	d.deadline = d.now().Add(dur)
	d.t = time.AfterFunc(dur, func() {
		d.mu.Lock()
		// A stale firing from a replaced or cancelled arm must not run.
		if !d.armed || d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.armed = false
		d.mu.Unlock()
		fn()
	})
}

// Cancel disarms the timer. A firing scheduled before Cancel that has not yet
// run its callback will not run it.
func (d *Debounce) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.armed = false
	if d.t != nil {
		d.t.Stop()
	}
}

// Armed reports whether a firing is pending.
func (d *Debounce) Armed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Remaining returns the time until the pending firing, or 0 when disarmed or
// already expired.
func (d *Debounce) Remaining() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.armed {
		return 0
	}
	r := d.deadline.Sub(d.now())
	if r < 0 {
		return 0
	}
	return r
}
