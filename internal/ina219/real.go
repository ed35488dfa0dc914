//go:build linux

package ina219

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// INA219 register addresses.
const (
	regConfig       = 0x00
	regShuntVoltage = 0x01
	regBusVoltage   = 0x02
	regPower        = 0x03
	regCurrent      = 0x04
	regCalibration  = 0x05
)

// Configuration register fields: 32V bus range, /8 gain (320mV shunt range),
// 12-bit ADC, shunt+bus continuous mode.
const configValue = (0x01 << 13) | (0x03 << 11) | (0x03 << 7) | (0x03 << 3) | 0x07

const i2cSlave = 0x0703 // I2C_SLAVE ioctl request

// RealSource reads an INA219 over the Linux I2C character device.
type RealSource struct {
	mu        sync.Mutex
	fd        int
	bus       int
	addr      int
	connected bool

	// Derived calibration values. currentLSB is A/bit, powerLSB W/bit.
	calValue   uint16
	currentLSB float64
	powerLSB   float64
}

// NewRealSource opens /dev/i2c-<bus>, binds the slave address, and writes
// the calibration and configuration registers. shuntOhms and maxCurrent
// scale the current LSB (0.1 ohm / 2A for the common UPS HAT).
func NewRealSource(bus, addr int, shuntOhms, maxCurrent float64) (*RealSource, error) {
	if shuntOhms <= 0 || maxCurrent <= 0 {
		return nil, fmt.Errorf("ina219: shunt resistance and max current must be positive")
	}
	s := &RealSource{fd: -1, bus: bus, addr: addr}
	s.calibrate(shuntOhms, maxCurrent)
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RealSource) calibrate(shuntOhms, maxCurrent float64) {
	s.currentLSB = maxCurrent / 32767
	s.powerLSB = s.currentLSB * 20
	s.calValue = uint16(0.04096 / (s.currentLSB * shuntOhms))
}

// connect opens the bus and programs the sensor. Caller must not hold mu.
func (s *RealSource) connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked()
}

func (s *RealSource) connectLocked() error {
	if s.fd >= 0 {
		unix.Close(s.fd)
		s.fd = -1
	}
	fd, err := unix.Open(fmt.Sprintf("/dev/i2c-%d", s.bus), unix.O_RDWR, 0)
	if err != nil {
		s.connected = false
		return fmt.Errorf("open i2c bus %d: %w", s.bus, err)
	}
	if err := unix.IoctlSetInt(fd, i2cSlave, s.addr); err != nil {
		unix.Close(fd)
		s.connected = false
		return fmt.Errorf("bind i2c address 0x%02x: %w", s.addr, err)
	}
	s.fd = fd
	if err := s.writeRegister(regCalibration, s.calValue); err != nil {
		s.connected = false
		return err
	}
	if err := s.writeRegister(regConfig, configValue); err != nil {
		s.connected = false
		return err
	}
	s.connected = true
	return nil
}

// writeRegister writes a 16-bit big-endian value. Caller holds mu.
func (s *RealSource) writeRegister(reg byte, value uint16) error {
	buf := []byte{reg, byte(value >> 8), byte(value)}
	if _, err := unix.Write(s.fd, buf); err != nil {
		return fmt.Errorf("write register 0x%02x: %w", reg, err)
	}
	return nil
}

// readRegister reads a 16-bit big-endian value. Caller holds mu.
func (s *RealSource) readRegister(reg byte) (uint16, error) {
	if _, err := unix.Write(s.fd, []byte{reg}); err != nil {
		return 0, fmt.Errorf("select register 0x%02x: %w", reg, err)
	}
	buf := make([]byte, 2)
	n, err := unix.Read(s.fd, buf)
	if err != nil {
		return 0, fmt.Errorf("read register 0x%02x: %w", reg, err)
	}
	if n != 2 {
		return 0, fmt.Errorf("read register 0x%02x: short read (%d bytes)", reg, n)
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// ReadAll reads voltage, current and power in one call.
func (s *RealSource) ReadAll() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected || s.fd < 0 {
		return Reading{}, fmt.Errorf("ina219: not connected")
	}

	busRaw, err := s.readRegister(regBusVoltage)
	if err != nil {
		s.connected = false
		return Reading{}, err
	}
	currentRaw, err := s.readRegister(regCurrent)
	if err != nil {
		s.connected = false
		return Reading{}, err
	}
	powerRaw, err := s.readRegister(regPower)
	if err != nil {
		s.connected = false
		return Reading{}, err
	}

	// Bus voltage lives in bits 15..3, 4mV per bit. Current is signed;
	// sign carries the charge/discharge direction.
	return Reading{
		Voltage: float64(busRaw>>3) * 0.004,
		Current: float64(int16(currentRaw)) * s.currentLSB,
		Power:   float64(powerRaw) * s.powerLSB,
	}, nil
}

// Connected reports whether the last bus operation succeeded.
func (s *RealSource) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Reconnect re-opens the bus and reprograms the sensor.
func (s *RealSource) Reconnect() error {
	return s.connect()
}

// Close releases the bus file descriptor.
func (s *RealSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.fd >= 0 {
		err := unix.Close(s.fd)
		s.fd = -1
		if err != nil {
			return fmt.Errorf("close i2c bus: %w", err)
		}
	}
	return nil
}
