// Package gpio provides hardware abstraction for the PIR motion input and
// the relay output channels. The real implementations use the Linux GPIO
// character device; fakes allow testing without hardware.
package gpio

import (
	"errors"
	"time"
)

// Source reads a binary signal input.
type Source interface {
	// Read returns the logical state of the signal: true means active.
	// Polarity (active-high vs active-low) is handled by the
	// implementation, so callers never see raw pin levels.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// ChannelState is a point-in-time view of one relay channel.
type ChannelState struct {
	On            bool
	LastTriggered time.Time // zero until the channel is first turned on
}

// Relay drives a bank of relay output channels. Implementations must be safe
// for concurrent use: commands arrive from both the polling worker and timer
// expiry callbacks.
type Relay interface {
	// Set switches a channel on or off.
	Set(channel int, on bool) error

	// State returns the current state of a channel. State is read back
	// from the controller, never assumed by callers.
	State(channel int) (ChannelState, error)

	// Channels lists the configured channel IDs in ascending order.
	Channels() []int

	// Close switches every channel off and releases GPIO resources.
	Close() error
}

// RelayPin describes the wiring of one relay channel.
type RelayPin struct {
	Pin       int
	ActiveLow bool
}

// ErrInvalidChannel is returned for relay commands naming an unknown channel.
var ErrInvalidChannel = errors.New("gpio: invalid relay channel")

// Default BCM pin assignments.
const (
	DefaultPinPIR    = 17
	DefaultPinRelay1 = 18
	DefaultPinRelay2 = 19
)
