package monitor

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hallam/sentinel/internal/history"
	"github.com/hallam/sentinel/internal/ina219"
	"github.com/hallam/sentinel/internal/logic"
)

// PowerConfig configures a Power monitor.
type PowerConfig struct {
	Source   ina219.Source
	Sink     EventSink
	History  *history.Log
	Interval time.Duration // defaults to DefaultPowerInterval
	Logger   *zap.Logger
	// OnError is the error notification path for failed polls. Optional.
	OnError func(error)

	// Breakpoints is the voltage->status table, highest threshold first.
	Breakpoints logic.Breakpoints
	// MinVoltage/MaxVoltage bound the linear percentage model.
	MinVoltage float64
	MaxVoltage float64
	// CapacityAh drives the runtime estimate; EnableRuntime gates it.
	CapacityAh    float64
	EnableRuntime bool
}

// PowerStatus is a point-in-time view of the power monitor.
type PowerStatus struct {
	Running      bool
	Connected    bool
	Battery      logic.BatteryStatus
	Voltage      float64
	Current      float64
	Power        float64
	Percentage   float64
	Charging     bool
	RuntimeMin   float64
	HasRuntime   bool
	ReadFailures uint64
}

// Power polls an analog power source, classifies the voltage into a battery
// status, and emits StatusChanged transitions when the status bucket or the
// charging flag changes. Every successful poll appends a StateRecord to
// history so trends can be queried later.
type Power struct {
	cfg PowerConfig
	log *zap.Logger
	now func() time.Time

	mu        sync.Mutex
	running   bool
	stop      chan struct{}
	done      chan struct{}
	last      logic.StateRecord
	hasLast   bool
	readFails uint64
}

// NewPower creates a power monitor in the IDLE state.
func NewPower(cfg PowerConfig) *Power {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPowerInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Power{cfg: cfg, log: cfg.Logger, now: time.Now}
}

// Start begins polling. Starting an already-running monitor is a no-op with
// a warning.
func (p *Power) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.log.Warn("power monitor already running")
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.mu.Unlock()

	p.log.Info("power monitoring started", zap.Duration("interval", p.cfg.Interval))
	go p.run(stop, done)
}

// Stop cancels polling and waits for the worker to exit. No further
// EventSink call will be made after Stop returns.
func (p *Power) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		p.log.Warn("power monitor not running")
		return
	}
	p.running = false
	stop, done := p.stop, p.done
	p.mu.Unlock()

	close(stop)
	<-done
	p.log.Info("power monitoring stopped")
}

// Running reports whether the monitor is in the MONITORING state.
func (p *Power) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Status returns a snapshot of the monitor state.
func (p *Power) Status() PowerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PowerStatus{
		Running:      p.running,
		Connected:    p.cfg.Source.Connected(),
		Battery:      logic.BatteryUnknown,
		ReadFailures: p.readFails,
	}
	if p.hasLast {
		st.Battery = p.last.Battery
		st.Voltage = p.last.Voltage
		st.Current = p.last.Current
		st.Power = p.last.Power
		st.Percentage = p.last.Percentage
		st.Charging = p.last.Charging
		st.RuntimeMin = p.last.RuntimeMin
		st.HasRuntime = p.last.HasRuntime
	}
	return st
}

func (p *Power) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.tick(p.now())
		}
	}
}

// tick performs one poll. Read failures are contained: no StateRecord is
// appended, the error is surfaced, and a reconnect is attempted so a
// transient I2C fault cannot kill monitoring permanently.
func (p *Power) tick(now time.Time) {
	reading, err := p.cfg.Source.ReadAll()
	if err != nil {
		p.mu.Lock()
		p.readFails++
		p.mu.Unlock()
		p.log.Warn("power read failed", zap.Error(err))
		if p.cfg.OnError != nil {
			p.cfg.OnError(err)
		}
		if !p.cfg.Source.Connected() {
			if rerr := p.cfg.Source.Reconnect(); rerr != nil {
				p.log.Warn("sensor reconnect failed", zap.Error(rerr))
			} else {
				p.log.Info("sensor reconnected")
			}
		}
		return
	}

	rec := logic.StateRecord{
		Time:       now,
		Channel:    logic.ChannelPower,
		Battery:    p.cfg.Breakpoints.Classify(reading.Voltage),
		Voltage:    reading.Voltage,
		Current:    reading.Current,
		Power:      reading.Power,
		Percentage: logic.Percentage(reading.Voltage, p.cfg.MinVoltage, p.cfg.MaxVoltage),
		Charging:   logic.IsCharging(reading.Current),
	}
	if p.cfg.EnableRuntime {
		rec.RuntimeMin, rec.HasRuntime = logic.EstimateRuntime(p.cfg.CapacityAh, reading.Current)
	}

	p.mu.Lock()
	changed := !p.hasLast ||
		rec.Battery != p.last.Battery ||
		rec.Charging != p.last.Charging
	p.last = rec
	p.hasLast = true
	p.mu.Unlock()

	if p.cfg.History != nil {
		p.cfg.History.Append(rec)
	}
	if changed {
		p.log.Info("battery status changed",
			zap.String("status", string(rec.Battery)),
			zap.Float64("voltage", rec.Voltage),
			zap.Float64("percentage", rec.Percentage),
			zap.Bool("charging", rec.Charging))
		dispatch(p.log, p.cfg.Sink, rec, logic.StatusChanged)
	}
}
