// Package status provides a thread-safe status tracker for the sentinel
// daemon. It is designed to be read by HTTP handlers and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/hallam/sentinel/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	MotionIntervalMs int64
	PowerIntervalMs  int64
	CooldownS        int64
	Broker           string
	HTTPPort         string
}

// MotionInfo is the displayed state of the motion channel.
type MotionInfo struct {
	State        logic.MotionState
	Triggers     uint64
	ReadFailures uint64
}

// PowerInfo is the displayed state of the power channel.
type PowerInfo struct {
	Battery      logic.BatteryStatus
	Voltage      float64
	Current      float64
	Power        float64
	Percentage   float64
	Charging     bool
	RuntimeMin   float64
	HasRuntime   bool
	Connected    bool
	ReadFailures uint64
}

// RelayInfo is the displayed state of one relay channel.
type RelayInfo struct {
	Channel       int
	On            bool
	LastTriggered time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Mode          string
	Monitoring    bool
	Motion        MotionInfo
	Power         PowerInfo
	Relays        []RelayInfo
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Power:     PowerInfo{Battery: logic.BatteryUnknown},
		},
	}
}

// SetMode sets the displayed controller mode.
func (t *Tracker) SetMode(mode string) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.mu.Unlock()
}

// SetMonitoring sets whether the monitors are running.
func (t *Tracker) SetMonitoring(on bool) {
	t.mu.Lock()
	t.snap.Monitoring = on
	t.mu.Unlock()
}

// UpdateMotion sets the motion channel view.
func (t *Tracker) UpdateMotion(info MotionInfo) {
	t.mu.Lock()
	t.snap.Motion = info
	t.mu.Unlock()
}

// UpdatePower sets the power channel view.
func (t *Tracker) UpdatePower(info PowerInfo) {
	t.mu.Lock()
	t.snap.Power = info
	t.mu.Unlock()
}

// UpdateRelays replaces the relay channel views.
func (t *Tracker) UpdateRelays(relays []RelayInfo) {
	t.mu.Lock()
	t.snap.Relays = relays
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Relays = append([]RelayInfo(nil), s.Relays...)
	s.Now = time.Now()
	return s
}
