//go:build linux

package gpio

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealSource reads the PIR output from actual hardware using the Linux GPIO
// character device.
type RealSource struct {
	chip       *gpiocdev.Chip
	line       *gpiocdev.Line
	activeHigh bool
}

// NewRealSource requests the given BCM pin as an input. activeHigh selects
// which raw level means "active": true for sensors like the HC-SR501 that
// drive the pin high on motion.
func NewRealSource(pin int, activeHigh bool) (*RealSource, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Pull direction matches polarity so a floating input reads inactive.
	pull := gpiocdev.WithPullDown
	if !activeHigh {
		pull = gpiocdev.WithPullUp
	}
	line, err := chip.RequestLine(pin, gpiocdev.AsInput, pull)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request sensor pin %d: %w", pin, err)
	}

	return &RealSource{chip: chip, line: line, activeHigh: activeHigh}, nil
}

// Read returns the logical sensor state, applying the configured polarity.
func (s *RealSource) Read() (bool, error) {
	raw, err := s.line.Value()
	if err != nil {
		return false, fmt.Errorf("read sensor pin: %w", err)
	}
	if s.activeHigh {
		return raw != 0, nil
	}
	return raw == 0, nil
}

// Close releases GPIO resources, reconfiguring the pin to input with
// pull-down to match Pi boot defaults.
func (s *RealSource) Close() error {
	var errs []error
	if s.line != nil {
		if err := s.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure sensor pin: %w", err))
		}
		if err := s.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sensor pin: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

type realChannel struct {
	line          *gpiocdev.Line
	activeLow     bool
	on            bool
	lastTriggered time.Time
}

func (ch *realChannel) level(on bool) int {
	if on != ch.activeLow {
		// active-low off, or active-high on
		return 1
	}
	return 0
}

// RealRelay drives relay channels on actual hardware. Most relay boards
// (e.g. the SunFounder 2-channel module) are active-low: driving the pin low
// energizes the coil.
type RealRelay struct {
	mu       sync.Mutex
	chip     *gpiocdev.Chip
	channels map[int]*realChannel
}

// NewRealRelay requests the given BCM pins as outputs, keyed by channel ID,
// and initializes every channel to off.
func NewRealRelay(pins map[int]RelayPin) (*RealRelay, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealRelay{
		chip:     chip,
		channels: make(map[int]*realChannel, len(pins)),
	}
	for id, rp := range pins {
		ch := &realChannel{activeLow: rp.ActiveLow}
		line, err := chip.RequestLine(rp.Pin, gpiocdev.AsOutput(ch.level(false)))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request relay pin %d (channel %d): %w", rp.Pin, id, err)
		}
		ch.line = line
		r.channels[id] = ch
	}
	return r, nil
}

// Set switches a channel on or off.
func (r *RealRelay) Set(channel int, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[channel]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	if err := ch.line.SetValue(ch.level(on)); err != nil {
		return fmt.Errorf("set relay channel %d: %w", channel, err)
	}
	ch.on = on
	if on {
		ch.lastTriggered = time.Now()
	}
	return nil
}

// State returns the tracked state of a channel.
func (r *RealRelay) State(channel int) (ChannelState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[channel]
	if !ok {
		return ChannelState{}, fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	return ChannelState{On: ch.on, LastTriggered: ch.lastTriggered}, nil
}

// Channels lists the configured channel IDs in ascending order.
func (r *RealRelay) Channels() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Close switches every channel off and releases GPIO resources.
func (r *RealRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for id, ch := range r.channels {
		if ch.line == nil {
			continue
		}
		if err := ch.line.SetValue(ch.level(false)); err != nil {
			errs = append(errs, fmt.Errorf("relay channel %d off: %w", id, err))
		}
		if err := ch.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay channel %d: %w", id, err))
		}
		ch.line = nil
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
