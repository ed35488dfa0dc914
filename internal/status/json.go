package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Mode          string      `json:"mode"`
	Monitoring    bool        `json:"monitoring"`
	Motion        MotionJSON  `json:"motion"`
	Power         PowerJSON   `json:"power"`
	Relays        []RelayJSON `json:"relays"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// MotionJSON is the JSON representation of the motion channel.
type MotionJSON struct {
	State        string `json:"state"`
	Triggers     uint64 `json:"triggers"`
	ReadFailures uint64 `json:"read_failures"`
}

// PowerJSON is the JSON representation of the power channel.
type PowerJSON struct {
	Status       string   `json:"status"`
	Voltage      float64  `json:"voltage"`
	Current      float64  `json:"current"`
	Power        float64  `json:"power"`
	Percentage   float64  `json:"percentage"`
	Charging     bool     `json:"charging"`
	RuntimeMin   *float64 `json:"runtime_min,omitempty"`
	Connected    bool     `json:"connected"`
	ReadFailures uint64   `json:"read_failures"`
}

// RelayJSON is the JSON representation of one relay channel.
type RelayJSON struct {
	Channel       int    `json:"channel"`
	State         string `json:"state"`
	LastTriggered string `json:"last_triggered,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	MotionIntervalMs int64  `json:"motion_interval_ms"`
	PowerIntervalMs  int64  `json:"power_interval_ms"`
	CooldownS        int64  `json:"cooldown_s"`
	Broker           string `json:"broker"`
	HTTPPort         string `json:"http_port"`
}

func relayState(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	motionState := string(snap.Motion.State)
	if motionState == "" {
		motionState = "UNKNOWN"
	}

	power := PowerJSON{
		Status:       string(snap.Power.Battery),
		Voltage:      snap.Power.Voltage,
		Current:      snap.Power.Current,
		Power:        snap.Power.Power,
		Percentage:   snap.Power.Percentage,
		Charging:     snap.Power.Charging,
		Connected:    snap.Power.Connected,
		ReadFailures: snap.Power.ReadFailures,
	}
	if snap.Power.HasRuntime {
		runtime := snap.Power.RuntimeMin
		power.RuntimeMin = &runtime
	}

	relays := make([]RelayJSON, 0, len(snap.Relays))
	for _, r := range snap.Relays {
		rj := RelayJSON{Channel: r.Channel, State: relayState(r.On)}
		if !r.LastTriggered.IsZero() {
			rj.LastTriggered = r.LastTriggered.UTC().Format(time.RFC3339)
		}
		relays = append(relays, rj)
	}

	return StatusInner{
		Mode:       snap.Mode,
		Monitoring: snap.Monitoring,
		Motion: MotionJSON{
			State:        motionState,
			Triggers:     snap.Motion.Triggers,
			ReadFailures: snap.Motion.ReadFailures,
		},
		Power:         power,
		Relays:        relays,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			MotionIntervalMs: snap.Config.MotionIntervalMs,
			PowerIntervalMs:  snap.Config.PowerIntervalMs,
			CooldownS:        snap.Config.CooldownS,
			Broker:           snap.Config.Broker,
			HTTPPort:         snap.Config.HTTPPort,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
