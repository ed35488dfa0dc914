// Package ina219 provides the analog power source abstraction for UPS
// monitoring. The real implementation speaks the INA219 register protocol
// over the Linux I2C character device; the fake allows testing without
// hardware.
package ina219

// Reading is one poll of the power sensor, in SI units.
type Reading struct {
	Voltage float64 // bus voltage, V
	Current float64 // A; positive = charging, negative = discharging
	Power   float64 // W
}

// Source reads voltage/current/power from a power sensor.
type Source interface {
	// ReadAll reads voltage, current and power in one call.
	ReadAll() (Reading, error)

	// Connected reports whether the sensor is currently reachable.
	Connected() bool

	// Reconnect attempts to re-establish the sensor connection after a
	// read failure.
	Reconnect() error

	// Close releases the underlying bus.
	Close() error
}

// Default wiring for the common UPS HAT.
const (
	DefaultBus     = 1
	DefaultAddress = 0x40
)
