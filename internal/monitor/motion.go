package monitor

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hallam/sentinel/internal/gpio"
	"github.com/hallam/sentinel/internal/history"
	"github.com/hallam/sentinel/internal/logic"
)

// MotionConfig configures a Motion monitor.
type MotionConfig struct {
	Source   gpio.Source
	Sink     EventSink
	History  *history.Log
	Interval time.Duration // defaults to DefaultMotionInterval
	Logger   *zap.Logger
	// OnError is the error notification path for failed polls. Optional.
	OnError func(error)
}

// MotionStatus is a point-in-time view of the motion monitor.
type MotionStatus struct {
	Running      bool
	State        logic.MotionState
	Triggers     uint64
	ReadFailures uint64
}

// Motion polls a binary signal source and emits edge-triggered transitions.
// It is IDLE until Start and returns to IDLE on Stop; stop-then-restart is
// supported.
type Motion struct {
	cfg MotionConfig
	log *zap.Logger
	now func() time.Time

	mu        sync.Mutex
	running   bool
	stop      chan struct{}
	done      chan struct{}
	det       logic.EdgeDetector
	triggers  uint64
	lastRise  time.Time
	hasRise   bool
	readFails uint64
}

// NewMotion creates a motion monitor in the IDLE state.
func NewMotion(cfg MotionConfig) *Motion {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultMotionInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Motion{cfg: cfg, log: cfg.Logger, now: time.Now}
}

// Start begins polling. Starting an already-running monitor is a no-op with
// a warning, not an error.
func (m *Motion) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.log.Warn("motion monitor already running")
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	m.log.Info("motion monitoring started", zap.Duration("interval", m.cfg.Interval))
	go m.run(stop, done)
}

// Stop cancels polling and waits for the worker to exit. After Stop returns
// no further EventSink call will be made by this monitor. Stopping an idle
// monitor is a no-op with a warning.
func (m *Motion) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		m.log.Warn("motion monitor not running")
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
	m.log.Info("motion monitoring stopped")
}

// Running reports whether the monitor is in the MONITORING state.
func (m *Motion) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Status returns a snapshot of the monitor state.
func (m *Motion) Status() MotionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := MotionStatus{
		Running:      m.running,
		Triggers:     m.triggers,
		ReadFailures: m.readFails,
	}
	if active, primed := m.det.State(); primed {
		if active {
			st.State = logic.MotionActive
		} else {
			st.State = logic.MotionClear
		}
	}
	return st
}

func (m *Motion) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.tick(m.now())
		}
	}
}

// tick performs one poll. A read failure is contained to this tick: it is
// logged and surfaced through OnError, and the loop keeps going.
func (m *Motion) tick(now time.Time) {
	active, err := m.cfg.Source.Read()
	if err != nil {
		m.mu.Lock()
		m.readFails++
		m.mu.Unlock()
		m.log.Warn("motion read failed", zap.Error(err))
		if m.cfg.OnError != nil {
			m.cfg.OnError(err)
		}
		return
	}

	m.mu.Lock()
	edge := m.det.Update(logic.Sample{Time: now, Active: active, Valid: true})

	var rec logic.StateRecord
	var kind logic.EventKind
	switch edge {
	case logic.Rose:
		m.triggers++
		m.lastRise = now
		m.hasRise = true
		rec = logic.StateRecord{
			Time:     now,
			Channel:  logic.ChannelMotion,
			Motion:   logic.MotionActive,
			Triggers: m.triggers,
		}
		kind = logic.ActiveStart
	case logic.Fell:
		rec = logic.StateRecord{
			Time:     now,
			Channel:  logic.ChannelMotion,
			Motion:   logic.MotionClear,
			Triggers: m.triggers,
		}
		// A fall observed before the first rise carries no duration.
		if m.hasRise {
			rec.Duration = now.Sub(m.lastRise)
			rec.HasDuration = true
		}
		kind = logic.ActiveEnd
	default:
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if m.cfg.History != nil {
		m.cfg.History.Append(rec)
	}
	switch kind {
	case logic.ActiveStart:
		m.log.Info("motion detected",
			zap.Uint64("trigger", rec.Triggers),
			zap.Time("at", rec.Time))
	case logic.ActiveEnd:
		m.log.Info("motion ended",
			zap.Duration("duration", rec.Duration),
			zap.Bool("duration_known", rec.HasDuration))
	}
	dispatch(m.log, m.cfg.Sink, rec, kind)
}
