package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestFiresOnce(t *testing.T) {
	d := New()
	var fired int32
	d.Arm(10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
	if d.Armed() {
		t.Error("timer should be disarmed after firing")
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	d := New()
	var fired int32
	d.Arm(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("fired %d times after cancel, want 0", got)
	}
	if d.Armed() {
		t.Error("timer should be disarmed after cancel")
	}
}

// Arming twice before the first expiry yields exactly one firing, at the
// second deadline.
func TestRearmReplacesNeverStacks(t *testing.T) {
	d := New()
	var first, second int32
	d.Arm(30*time.Millisecond, func() { atomic.AddInt32(&first, 1) })
	d.Arm(60*time.Millisecond, func() { atomic.AddInt32(&second, 1) })

	// After the first deadline but before the second: nothing yet.
	time.Sleep(45 * time.Millisecond)
	if atomic.LoadInt32(&first) != 0 {
		t.Error("replaced arm fired")
	}
	if atomic.LoadInt32(&second) != 0 {
		t.Error("second arm fired early")
	}

	time.Sleep(45 * time.Millisecond)
	if atomic.LoadInt32(&first) != 0 {
		t.Error("replaced arm fired late")
	}
	if got := atomic.LoadInt32(&second); got != 1 {
		t.Errorf("second arm fired %d times, want 1", got)
	}
}

func TestRemaining(t *testing.T) {
	d := New()
	if d.Remaining() != 0 {
		t.Error("disarmed timer should have 0 remaining")
	}

	d.Arm(time.Hour, func() {})
	r := d.Remaining()
	if r <= 59*time.Minute || r > time.Hour {
		t.Errorf("remaining %v, want ~1h", r)
	}

	d.Cancel()
	if d.Remaining() != 0 {
		t.Error("cancelled timer should have 0 remaining")
	}
}

func TestRearmAfterFire(t *testing.T) {
	d := New()
	ch := make(chan struct{}, 2)
	d.Arm(5*time.Millisecond, func() { ch <- struct{}{} })

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("first arm never fired")
	}

	d.Arm(5*time.Millisecond, func() { ch <- struct{}{} })
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("re-arm after fire never fired")
	}
}

// Hammer arm/cancel from two goroutines and verify no callback runs after
// the final cancel settles.
func TestConcurrentArmCancel(t *testing.T) {
	d := New()
	var fired int32
	fn := func() { atomic.AddInt32(&fired, 1) }

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			d.Arm(time.Microsecond, fn)
		}
		close(done)
	}()
	for i := 0; i < 200; i++ {
		d.Cancel()
	}
	<-done

	d.Cancel()
	settled := atomic.LoadInt32(&fired)
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != settled {
		t.Errorf("callback fired after final cancel: %d -> %d", settled, got)
	}
}
