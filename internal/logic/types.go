// Package logic contains the pure state-tracking core: edge detection for
// binary signals and threshold classification for battery voltage.
// This package has NO external dependencies (no GPIO, I2C, MQTT, OS, or
// time.Sleep). Time is always injectable via time.Time parameters.
package logic

import "time"

// MotionState represents the logical state of the motion channel.
type MotionState string

const (
	MotionUnknown MotionState = ""
	MotionClear   MotionState = "CLEAR"
	MotionActive  MotionState = "ACTIVE"
)

// BatteryStatus represents the discrete battery level bucket.
type BatteryStatus string

const (
	BatteryUnknown   BatteryStatus = "UNKNOWN"
	BatteryCritical  BatteryStatus = "CRITICAL"
	BatteryLow       BatteryStatus = "LOW"
	BatteryGood      BatteryStatus = "GOOD"
	BatteryExcellent BatteryStatus = "EXCELLENT"
)

// Severity orders battery statuses from worst to best. Higher is better.
func (s BatteryStatus) Severity() int {
	switch s {
	case BatteryCritical:
		return 1
	case BatteryLow:
		return 2
	case BatteryGood:
		return 3
	case BatteryExcellent:
		return 4
	default:
		return 0
	}
}

// EventKind identifies the kind of state transition carried by a StateRecord.
type EventKind string

const (
	// ActiveStart is emitted when the motion channel rises.
	ActiveStart EventKind = "ACTIVE_START"
	// ActiveEnd is emitted when the motion channel falls.
	ActiveEnd EventKind = "ACTIVE_END"
	// StatusChanged is emitted when the battery status bucket or charging
	// flag changes.
	StatusChanged EventKind = "STATUS_CHANGED"
)

// Channel identifies which monitored channel a record belongs to.
type Channel string

const (
	ChannelMotion Channel = "motion"
	ChannelPower  Channel = "power"
)

// Sample is a single raw poll of a signal source. It is folded into state by
// the monitor and then discarded; only StateRecords are retained.
type Sample struct {
	Time   time.Time
	Active bool
	// Valid is false when the underlying read failed. Invalid samples are
	// never folded into state.
	Valid bool
}

// StateRecord is an immutable snapshot of a channel's derived state at one
// instant. Records are appended to a bounded history log in chronological
// order.
type StateRecord struct {
	Time    time.Time
	Channel Channel

	// Motion channel fields.
	Motion   MotionState
	Triggers uint64 // monotonically increasing rise counter
	// Duration of the activity that just ended. Only meaningful on
	// ActiveEnd records and only when HasDuration is true (a fall observed
	// before the first rise carries no duration).
	Duration    time.Duration
	HasDuration bool

	// Power channel fields.
	Battery    BatteryStatus
	Voltage    float64
	Current    float64
	Power      float64
	Percentage float64
	Charging   bool
	// RuntimeMin is the estimated runtime in minutes. Valid only when
	// HasRuntime is true (discharging with runtime estimation enabled).
	RuntimeMin float64
	HasRuntime bool
}
