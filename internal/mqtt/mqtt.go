// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/hallam/sentinel/internal/logic"
)

// TopicMotion is the MQTT topic for motion transition events.
const TopicMotion = "sentinel/motion/events"

// TopicPower is the MQTT topic for battery status events.
const TopicPower = "sentinel/power/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sentinel/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a state transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(rec logic.StateRecord, kind logic.EventKind) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Sentinel EventPayload `json:"sentinel"`
}

// EventPayload contains the transition details.
type EventPayload struct {
	Timestamp string          `json:"timestamp"`
	Channel   string          `json:"channel"`
	Event     string          `json:"event"`
	Motion    *MotionPayload  `json:"motion,omitempty"`
	Battery   *BatteryPayload `json:"battery,omitempty"`
}

// MotionPayload carries the motion channel fields.
type MotionPayload struct {
	State     string   `json:"state"`
	Triggers  uint64   `json:"triggers"`
	DurationS *float64 `json:"duration_s,omitempty"`
}

// BatteryPayload carries the power channel fields.
type BatteryPayload struct {
	Status     string   `json:"status"`
	Voltage    float64  `json:"voltage"`
	Current    float64  `json:"current"`
	Power      float64  `json:"power"`
	Percentage float64  `json:"percentage"`
	Charging   bool     `json:"charging"`
	RuntimeMin *float64 `json:"runtime_min,omitempty"`
}

// TopicFor returns the topic a record publishes to.
func TopicFor(rec logic.StateRecord) string {
	if rec.Channel == logic.ChannelPower {
		return TopicPower
	}
	return TopicMotion
}

// FormatPayload creates the JSON payload for a state transition.
func FormatPayload(rec logic.StateRecord, kind logic.EventKind) ([]byte, error) {
	payload := Payload{
		Sentinel: EventPayload{
			Timestamp: rec.Time.UTC().Format(time.RFC3339),
			Channel:   string(rec.Channel),
			Event:     string(kind),
		},
	}
	switch rec.Channel {
	case logic.ChannelPower:
		b := &BatteryPayload{
			Status:     string(rec.Battery),
			Voltage:    rec.Voltage,
			Current:    rec.Current,
			Power:      rec.Power,
			Percentage: rec.Percentage,
			Charging:   rec.Charging,
		}
		if rec.HasRuntime {
			runtime := rec.RuntimeMin
			b.RuntimeMin = &runtime
		}
		payload.Sentinel.Battery = b
	default:
		m := &MotionPayload{
			State:    string(rec.Motion),
			Triggers: rec.Triggers,
		}
		if rec.HasDuration {
			seconds := rec.Duration.Seconds()
			m.DurationS = &seconds
		}
		payload.Sentinel.Motion = m
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (STARTUP, LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
