//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns an error on non-Linux platforms.
func NewRealSource(pin int, activeHigh bool) (*RealSource, error) {
	return nil, errUnsupported
}

func (s *RealSource) Read() (bool, error) { return false, errUnsupported }

func (s *RealSource) Close() error { return nil }

// RealRelay is not available on non-Linux platforms.
type RealRelay struct{}

// NewRealRelay returns an error on non-Linux platforms.
func NewRealRelay(pins map[int]RelayPin) (*RealRelay, error) {
	return nil, errUnsupported
}

func (r *RealRelay) Set(channel int, on bool) error { return errUnsupported }

func (r *RealRelay) State(channel int) (ChannelState, error) {
	return ChannelState{}, errUnsupported
}

func (r *RealRelay) Channels() []int { return nil }

func (r *RealRelay) Close() error { return nil }
