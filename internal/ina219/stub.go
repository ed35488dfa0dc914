//go:build !linux

package ina219

import "errors"

var errUnsupported = errors.New("ina219: not supported on this platform (requires Linux)")

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns an error on non-Linux platforms.
func NewRealSource(bus, addr int, shuntOhms, maxCurrent float64) (*RealSource, error) {
	return nil, errUnsupported
}

func (s *RealSource) ReadAll() (Reading, error) { return Reading{}, errUnsupported }

func (s *RealSource) Connected() bool { return false }

func (s *RealSource) Reconnect() error { return errUnsupported }

func (s *RealSource) Close() error { return nil }
