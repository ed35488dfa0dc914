// Package control implements the top-level actuation policy: it maps motion
// transitions onto relay commands according to the active mode, with a
// cooldown gate and a single-slot off-delay timer.
package control

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hallam/sentinel/internal/gpio"
	"github.com/hallam/sentinel/internal/logic"
	"github.com/hallam/sentinel/internal/timer"
)

// Mode is the controller operating mode. Exactly one is active at a time.
type Mode string

const (
	// ModeManual performs no autonomous action; only ManualControl
	// touches the relay.
	ModeManual Mode = "manual"
	// ModeAuto turns the relay on when motion starts and off a configured
	// delay after it ends.
	ModeAuto Mode = "auto"
	// ModeTimer turns the relay on when motion starts and off after a
	// fixed duration, ignoring motion in between.
	ModeTimer Mode = "timer"
)

// Action is a manual relay command.
type Action string

const (
	ActionOn     Action = "on"
	ActionOff    Action = "off"
	ActionToggle Action = "toggle"
	ActionPulse  Action = "pulse"
)

var (
	// ErrInvalidMode is returned by SetMode for an unknown mode.
	ErrInvalidMode = errors.New("control: invalid mode")
	// ErrInvalidAction is returned by ManualControl for an unknown action.
	ErrInvalidAction = errors.New("control: invalid action")
)

// Config holds the controller policy settings.
type Config struct {
	// AutoEnabled and TimerEnabled gate the respective modes: a disabled
	// mode can still be selected but performs no autonomous action.
	AutoEnabled  bool
	TimerEnabled bool
	// TriggerChannel is the relay channel driven by auto/timer actions.
	TriggerChannel int
	// AutoDelay keeps the relay on this long after motion ends.
	AutoDelay time.Duration
	// Cooldown is the minimum spacing between accepted triggers, measured
	// trigger to trigger.
	Cooldown time.Duration
	// TimerDuration is the fixed on-time in timer mode.
	TimerDuration time.Duration
	// PulseDuration is the on-time for the manual pulse action.
	PulseDuration time.Duration
}

// Controller owns the mode state machine. Its state is mutated from two
// execution contexts (the monitor worker delivering events, and timer expiry
// callbacks), so the {mode, last-trigger, armed-timer} tuple is guarded as a
// single block by one mutex.
type Controller struct {
	cfg   Config
	relay gpio.Relay
	log   *zap.Logger

	mu          sync.Mutex
	mode        Mode
	lastTrigger time.Time
	hasTrigger  bool
	delay       *timer.Debounce
}

// New creates a controller in manual mode.
func New(cfg Config, relay gpio.Relay, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		cfg:   cfg,
		relay: relay,
		log:   log,
		mode:  ModeManual,
		delay: timer.New(),
	}
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches the operating mode. Entering manual cancels any pending
// off-delay so no autonomous action continues.
func (c *Controller) SetMode(mode Mode) error {
	switch mode {
	case ModeManual, ModeAuto, ModeTimer:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if mode == c.mode {
		return nil
	}
	c.mode = mode
	if mode == ModeManual {
		c.delay.Cancel()
	}
	if mode == ModeAuto && !c.cfg.AutoEnabled {
		c.log.Warn("auto mode selected but disabled in configuration")
	}
	if mode == ModeTimer && !c.cfg.TimerEnabled {
		c.log.Warn("timer mode selected but disabled in configuration")
	}
	c.log.Info("mode changed", zap.String("mode", string(mode)))
	return nil
}

// OnEvent implements monitor.EventSink. Motion transitions drive the relay
// according to the active mode; battery transitions are policy no-ops here.
func (c *Controller) OnEvent(rec logic.StateRecord, kind logic.EventKind) {
	switch kind {
	case logic.ActiveStart:
		c.handleActiveStart(rec.Time)
	case logic.ActiveEnd:
		c.handleActiveEnd()
	}
}

func (c *Controller) handleActiveStart(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case ModeAuto:
		if !c.cfg.AutoEnabled {
			return
		}
		if !c.passCooldownLocked(at) {
			return
		}
		if err := c.relay.Set(c.cfg.TriggerChannel, true); err != nil {
			c.log.Error("auto trigger failed", zap.Error(err))
			return
		}
		c.lastTrigger = at
		c.hasTrigger = true
		c.log.Info("auto trigger: relay on", zap.Int("channel", c.cfg.TriggerChannel))

	case ModeTimer:
		if !c.cfg.TimerEnabled {
			return
		}
		// Mid-timer triggers neither re-arm nor re-trigger.
		if c.delay.Armed() {
			return
		}
		if !c.passCooldownLocked(at) {
			return
		}
		if err := c.relay.Set(c.cfg.TriggerChannel, true); err != nil {
			c.log.Error("timer trigger failed", zap.Error(err))
			return
		}
		c.lastTrigger = at
		c.hasTrigger = true
		c.delay.Arm(c.cfg.TimerDuration, c.relayOff)
		c.log.Info("timer trigger: relay on",
			zap.Int("channel", c.cfg.TriggerChannel),
			zap.Duration("duration", c.cfg.TimerDuration))
	}
}

// passCooldownLocked is the read+compare half of the cooldown gate; the
// caller updates lastTrigger under the same lock so the gate is atomic.
// A rejected trigger never updates the timestamp.
func (c *Controller) passCooldownLocked(at time.Time) bool {
	if c.hasTrigger && at.Sub(c.lastTrigger) < c.cfg.Cooldown {
		c.log.Debug("trigger ignored during cooldown",
			zap.Duration("since_last", at.Sub(c.lastTrigger)))
		return false
	}
	return true
}

func (c *Controller) handleActiveEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeAuto || !c.cfg.AutoEnabled {
		return
	}
	// Cancel-and-replace: a new end event restarts the delay, it never
	// stacks a second firing.
	c.delay.Arm(c.cfg.AutoDelay, c.relayOff)
	c.log.Debug("off-delay armed", zap.Duration("delay", c.cfg.AutoDelay))
}

// relayOff runs on timer expiry, from the timer goroutine.
func (c *Controller) relayOff() {
	if err := c.relay.Set(c.cfg.TriggerChannel, false); err != nil {
		c.log.Error("delayed relay off failed", zap.Error(err))
		return
	}
	c.log.Info("relay off after delay", zap.Int("channel", c.cfg.TriggerChannel))
}

// ManualControl executes a direct relay command. Pulse blocks the calling
// goroutine for the pulse duration by design.
func (c *Controller) ManualControl(channel int, action Action) error {
	switch action {
	case ActionOn:
		return c.relay.Set(channel, true)
	case ActionOff:
		return c.relay.Set(channel, false)
	case ActionToggle:
		st, err := c.relay.State(channel)
		if err != nil {
			return err
		}
		return c.relay.Set(channel, !st.On)
	case ActionPulse:
		if err := c.relay.Set(channel, true); err != nil {
			return err
		}
		time.Sleep(c.cfg.PulseDuration)
		return c.relay.Set(channel, false)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

// Status is a point-in-time view of the controller.
type Status struct {
	Mode           Mode
	LastTrigger    time.Time
	HasTrigger     bool
	TimerArmed     bool
	TimerRemaining time.Duration
}

// Snapshot returns the controller status.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Mode:           c.mode,
		LastTrigger:    c.lastTrigger,
		HasTrigger:     c.hasTrigger,
		TimerArmed:     c.delay.Armed(),
		TimerRemaining: c.delay.Remaining(),
	}
}

// Close cancels any pending timer. Call during shutdown before releasing
// the relay.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay.Cancel()
}
