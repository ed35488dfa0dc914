// Package config loads and validates the sentinel daemon configuration from
// a YAML file. Every field has a default so a missing file still yields a
// runnable configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hallam/sentinel/internal/gpio"
	"github.com/hallam/sentinel/internal/ina219"
	"github.com/hallam/sentinel/internal/logic"
)

// Config is the complete daemon configuration.
type Config struct {
	Motion  Motion  `yaml:"motion"`
	Power   Power   `yaml:"power"`
	Control Control `yaml:"control"`
	Relays  []Relay `yaml:"relays"`
	MQTT    MQTT    `yaml:"mqtt"`
	HTTP    HTTP    `yaml:"http"`
	History History `yaml:"history"`
	Logging Logging `yaml:"logging"`
}

// Motion configures the PIR input channel.
type Motion struct {
	Pin        int   `yaml:"pin"`
	ActiveHigh bool  `yaml:"active_high"`
	IntervalMs int64 `yaml:"interval_ms"`
}

// Breakpoint is one voltage threshold in the battery table.
type Breakpoint struct {
	Voltage float64 `yaml:"voltage"`
	Status  string  `yaml:"status"`
}

// Power configures the battery sensor channel.
type Power struct {
	Bus           int          `yaml:"bus"`
	Address       int          `yaml:"address"`
	IntervalMs    int64        `yaml:"interval_ms"`
	ShuntOhms     float64      `yaml:"shunt_ohms"`
	MaxCurrent    float64      `yaml:"max_current"`
	MinVoltage    float64      `yaml:"min_voltage"`
	MaxVoltage    float64      `yaml:"max_voltage"`
	CapacityAh    float64      `yaml:"capacity_ah"`
	EnableRuntime bool         `yaml:"enable_runtime"`
	Breakpoints   []Breakpoint `yaml:"breakpoints"`
}

// Control configures the actuation policy.
type Control struct {
	AutoEnabled    bool  `yaml:"auto_enabled"`
	TimerEnabled   bool  `yaml:"timer_enabled"`
	TriggerChannel int   `yaml:"trigger_channel"`
	AutoDelayS     int64 `yaml:"auto_delay_s"`
	CooldownS      int64 `yaml:"cooldown_s"`
	TimerDurationS int64 `yaml:"timer_duration_s"`
	PulseMs        int64 `yaml:"pulse_ms"`
}

// Relay configures one relay output channel.
type Relay struct {
	Channel   int  `yaml:"channel"`
	Pin       int  `yaml:"pin"`
	ActiveLow bool `yaml:"active_low"`
}

// MQTT configures the broker connection.
type MQTT struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// HTTP configures the status server.
type HTTP struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// History configures the in-memory state log.
type History struct {
	Capacity int `yaml:"capacity"`
}

// Logging configures the zap logger.
type Logging struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Motion: Motion{
			Pin:        gpio.DefaultPinPIR,
			ActiveHigh: true,
			IntervalMs: 100,
		},
		Power: Power{
			Bus:           ina219.DefaultBus,
			Address:       ina219.DefaultAddress,
			IntervalMs:    1000,
			ShuntOhms:     0.1,
			MaxCurrent:    3.2,
			MinVoltage:    9.0,
			MaxVoltage:    12.6,
			CapacityAh:    7.0,
			EnableRuntime: true,
			Breakpoints: []Breakpoint{
				{Voltage: 12.0, Status: string(logic.BatteryExcellent)},
				{Voltage: 11.5, Status: string(logic.BatteryGood)},
				{Voltage: 11.0, Status: string(logic.BatteryLow)},
				{Voltage: 10.0, Status: string(logic.BatteryCritical)},
			},
		},
		Control: Control{
			AutoEnabled:    true,
			TriggerChannel: 1,
			AutoDelayS:     30,
			CooldownS:      10,
			TimerDurationS: 300,
			PulseMs:        500,
		},
		Relays: []Relay{
			{Channel: 1, Pin: gpio.DefaultPinRelay1},
			{Channel: 2, Pin: gpio.DefaultPinRelay2},
		},
		MQTT: MQTT{
			Enabled:  true,
			Broker:   "tcp://localhost:1883",
			ClientID: "sentinel",
		},
		HTTP: HTTP{
			Enabled: true,
			Addr:    ":8080",
		},
		History: History{Capacity: 1000},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error; a malformed or invalid one is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations that cannot run. It is called at startup
// so bad values fail fast instead of surfacing mid-run.
func (c Config) Validate() error {
	if c.Motion.IntervalMs <= 0 {
		return fmt.Errorf("motion.interval_ms must be positive, got %d", c.Motion.IntervalMs)
	}
	if c.Power.IntervalMs <= 0 {
		return fmt.Errorf("power.interval_ms must be positive, got %d", c.Power.IntervalMs)
	}
	if c.Power.ShuntOhms <= 0 {
		return fmt.Errorf("power.shunt_ohms must be positive, got %g", c.Power.ShuntOhms)
	}
	if c.Power.MaxCurrent <= 0 {
		return fmt.Errorf("power.max_current must be positive, got %g", c.Power.MaxCurrent)
	}
	if c.Power.MaxVoltage <= c.Power.MinVoltage {
		return fmt.Errorf("power.max_voltage (%g) must exceed min_voltage (%g)",
			c.Power.MaxVoltage, c.Power.MinVoltage)
	}
	if c.Power.CapacityAh < 0 {
		return fmt.Errorf("power.capacity_ah must not be negative, got %g", c.Power.CapacityAh)
	}
	if _, err := c.Power.BreakpointTable(); err != nil {
		return err
	}
	if c.Control.AutoDelayS < 0 || c.Control.CooldownS < 0 {
		return fmt.Errorf("control delays must not be negative")
	}
	if c.Control.TimerDurationS <= 0 {
		return fmt.Errorf("control.timer_duration_s must be positive, got %d", c.Control.TimerDurationS)
	}
	if c.Control.PulseMs <= 0 {
		return fmt.Errorf("control.pulse_ms must be positive, got %d", c.Control.PulseMs)
	}
	if len(c.Relays) == 0 {
		return fmt.Errorf("at least one relay channel is required")
	}
	seen := make(map[int]bool, len(c.Relays))
	validTrigger := false
	for _, r := range c.Relays {
		if seen[r.Channel] {
			return fmt.Errorf("duplicate relay channel %d", r.Channel)
		}
		seen[r.Channel] = true
		if r.Channel == c.Control.TriggerChannel {
			validTrigger = true
		}
	}
	if !validTrigger {
		return fmt.Errorf("control.trigger_channel %d is not a configured relay", c.Control.TriggerChannel)
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("history.capacity must be positive, got %d", c.History.Capacity)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required when http is enabled")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// BreakpointTable converts the YAML breakpoints into the classifier table,
// validating statuses and ordering.
func (p Power) BreakpointTable() (logic.Breakpoints, error) {
	bps := make(logic.Breakpoints, 0, len(p.Breakpoints))
	for _, bp := range p.Breakpoints {
		status := logic.BatteryStatus(bp.Status)
		switch status {
		case logic.BatteryExcellent, logic.BatteryGood, logic.BatteryLow, logic.BatteryCritical:
		default:
			return nil, fmt.Errorf("unknown battery status %q in breakpoints", bp.Status)
		}
		bps = append(bps, logic.Breakpoint{Threshold: bp.Voltage, Status: status})
	}
	if err := bps.Validate(); err != nil {
		return nil, fmt.Errorf("power.breakpoints: %w", err)
	}
	return bps, nil
}

// MotionInterval returns the motion poll interval as a Duration.
func (c Config) MotionInterval() time.Duration {
	return time.Duration(c.Motion.IntervalMs) * time.Millisecond
}

// PowerInterval returns the power poll interval as a Duration.
func (c Config) PowerInterval() time.Duration {
	return time.Duration(c.Power.IntervalMs) * time.Millisecond
}

// AutoDelay returns the auto-mode off delay as a Duration.
func (c Config) AutoDelay() time.Duration {
	return time.Duration(c.Control.AutoDelayS) * time.Second
}

// Cooldown returns the trigger cooldown as a Duration.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.Control.CooldownS) * time.Second
}

// TimerDuration returns the timer-mode on duration as a Duration.
func (c Config) TimerDuration() time.Duration {
	return time.Duration(c.Control.TimerDurationS) * time.Second
}

// PulseDuration returns the manual pulse width as a Duration.
func (c Config) PulseDuration() time.Duration {
	return time.Duration(c.Control.PulseMs) * time.Millisecond
}
