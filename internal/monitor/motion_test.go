package monitor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hallam/sentinel/internal/gpio"
	"github.com/hallam/sentinel/internal/history"
	"github.com/hallam/sentinel/internal/logic"
)

type recordingSink struct {
	mu    sync.Mutex
	recs  []logic.StateRecord
	kinds []logic.EventKind
}

func (s *recordingSink) OnEvent(rec logic.StateRecord, kind logic.EventKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	s.kinds = append(s.kinds, kind)
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

func (s *recordingSink) at(i int) (logic.StateRecord, logic.EventKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recs[i], s.kinds[i]
}

type panickySink struct{}

func (panickySink) OnEvent(logic.StateRecord, logic.EventKind) { panic("sink blew up") }

func TestMotionTransitions(t *testing.T) {
	src := gpio.NewFakeSource(false)
	sink := &recordingSink{}
	hist := history.New(16)
	m := NewMotion(MotionConfig{Source: src, Sink: sink, History: hist})

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	step := func(i int, active bool) {
		src.Set(active)
		m.tick(base.Add(time.Duration(i) * 100 * time.Millisecond))
	}

	step(0, false) // prime
	step(1, false)
	step(2, true) // rise
	step(3, true)
	step(4, false) // fall after 200ms
	step(5, true)  // rise again

	if sink.len() != 3 {
		t.Fatalf("events: got %d, want 3", sink.len())
	}

	rec, kind := sink.at(0)
	if kind != logic.ActiveStart {
		t.Errorf("event 0: got %s, want ACTIVE_START", kind)
	}
	if rec.Triggers != 1 {
		t.Errorf("event 0: triggers = %d, want 1", rec.Triggers)
	}
	if rec.Motion != logic.MotionActive {
		t.Errorf("event 0: motion = %s, want ACTIVE", rec.Motion)
	}

	rec, kind = sink.at(1)
	if kind != logic.ActiveEnd {
		t.Errorf("event 1: got %s, want ACTIVE_END", kind)
	}
	if !rec.HasDuration {
		t.Fatal("event 1: duration should be known")
	}
	if rec.Duration != 200*time.Millisecond {
		t.Errorf("event 1: duration = %v, want 200ms", rec.Duration)
	}

	rec, _ = sink.at(2)
	if rec.Triggers != 2 {
		t.Errorf("event 2: triggers = %d, want 2", rec.Triggers)
	}

	if hist.Len() != 3 {
		t.Errorf("history: got %d records, want 3", hist.Len())
	}
}

func TestMotionFlatSignalNoEvents(t *testing.T) {
	src := gpio.NewFakeSource(true)
	sink := &recordingSink{}
	m := NewMotion(MotionConfig{Source: src, Sink: sink})

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		m.tick(base.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	if sink.len() != 0 {
		t.Errorf("flat signal produced %d events", sink.len())
	}
}

func TestMotionFallBeforeFirstRise(t *testing.T) {
	// Source starts active; the first observed transition is a fall.
	src := gpio.NewFakeSource(true)
	sink := &recordingSink{}
	m := NewMotion(MotionConfig{Source: src, Sink: sink})

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.tick(base)
	src.Set(false)
	m.tick(base.Add(100 * time.Millisecond))

	if sink.len() != 1 {
		t.Fatalf("events: got %d, want 1", sink.len())
	}
	rec, kind := sink.at(0)
	if kind != logic.ActiveEnd {
		t.Errorf("kind: got %s, want ACTIVE_END", kind)
	}
	if rec.HasDuration {
		t.Error("duration must be absent when no rise was observed")
	}
}

func TestMotionReadErrorContained(t *testing.T) {
	src := gpio.NewFakeSource(false)
	sink := &recordingSink{}
	hist := history.New(16)
	var errs []error
	m := NewMotion(MotionConfig{
		Source:  src,
		Sink:    sink,
		History: hist,
		OnError: func(err error) { errs = append(errs, err) },
	})

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.tick(base) // prime

	src.SetError(errors.New("pin read failed"))
	m.tick(base.Add(100 * time.Millisecond))
	m.tick(base.Add(200 * time.Millisecond))

	if len(errs) != 2 {
		t.Errorf("error notifications: got %d, want 2", len(errs))
	}
	if hist.Len() != 0 {
		t.Errorf("failed polls must not append records, got %d", hist.Len())
	}
	if st := m.Status(); st.ReadFailures != 2 {
		t.Errorf("read failures: got %d, want 2", st.ReadFailures)
	}

	// Loop survives: clearing the fault resumes normal edge detection.
	src.SetError(nil)
	src.Set(true)
	m.tick(base.Add(300 * time.Millisecond))
	if sink.len() != 1 {
		t.Fatalf("events after recovery: got %d, want 1", sink.len())
	}
	if _, kind := sink.at(0); kind != logic.ActiveStart {
		t.Errorf("kind after recovery: got %s, want ACTIVE_START", kind)
	}
}

func TestMotionSinkPanicContained(t *testing.T) {
	src := gpio.NewFakeSource(false)
	m := NewMotion(MotionConfig{Source: src, Sink: panickySink{}})

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.tick(base)
	src.Set(true)
	m.tick(base.Add(100 * time.Millisecond)) // must not panic the caller

	if st := m.Status(); st.Triggers != 1 {
		t.Errorf("triggers: got %d, want 1", st.Triggers)
	}
}

func TestMotionStartStopRestart(t *testing.T) {
	src := gpio.NewFakeSource(false)
	sink := &recordingSink{}
	m := NewMotion(MotionConfig{Source: src, Sink: sink, Interval: 5 * time.Millisecond})

	if m.Running() {
		t.Fatal("new monitor must be idle")
	}
	m.Start()
	if !m.Running() {
		t.Fatal("monitor should be running after Start")
	}
	m.Start() // redundant start: no-op

	// Let the worker observe a transition.
	time.Sleep(25 * time.Millisecond)
	src.Set(true)
	time.Sleep(25 * time.Millisecond)

	m.Stop()
	if m.Running() {
		t.Fatal("monitor should be idle after Stop")
	}
	m.Stop() // redundant stop: no-op

	got := sink.len()
	if got == 0 {
		t.Fatal("expected at least one event before stop")
	}

	// No sink calls after Stop returns.
	src.Set(false)
	time.Sleep(30 * time.Millisecond)
	if sink.len() != got {
		t.Errorf("sink called after Stop: %d -> %d", got, sink.len())
	}

	// Stop-then-restart is supported.
	m.Start()
	if !m.Running() {
		t.Fatal("monitor should run again after restart")
	}
	m.Stop()
}

func TestMultiSinkFanOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	ms := MultiSink{a, nil, b}
	rec := logic.StateRecord{Channel: logic.ChannelMotion, Motion: logic.MotionActive}
	ms.OnEvent(rec, logic.ActiveStart)

	if a.len() != 1 || b.len() != 1 {
		t.Errorf("fan-out: a=%d b=%d, want 1 each", a.len(), b.len())
	}
}
