package gpio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// FakeSource is a test double that returns scripted sensor values.
type FakeSource struct {
	mu sync.Mutex

	// Samples contains scripted logical values to return. Each call to
	// Read() consumes the next sample; when exhausted, the last sample is
	// returned repeatedly.
	Samples []bool

	// ReadError, if set, will be returned by Read().
	ReadError error

	// Closed tracks if Close was called.
	Closed bool

	index int
	reads int
}

// NewFakeSource creates a FakeSource with the given samples.
func NewFakeSource(samples ...bool) *FakeSource {
	return &FakeSource{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeSource) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// SetError makes subsequent reads fail with err (nil clears it).
func (f *FakeSource) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadError = err
}

// Set replaces the script with a single repeating value.
func (f *FakeSource) Set(active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Samples = []bool{active}
	f.index = 0
}

// Reads returns how many times Read was called.
func (f *FakeSource) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// RelayCommand records one Set call against a FakeRelay.
type RelayCommand struct {
	Channel int
	On      bool
	At      time.Time
}

// FakeRelay is a test double that records relay commands.
type FakeRelay struct {
	mu sync.Mutex

	// SetError, if set, will be returned by Set().
	SetError error

	// Closed tracks if Close was called.
	Closed bool

	states   map[int]ChannelState
	commands []RelayCommand
}

// NewFakeRelay creates a FakeRelay with the given channel IDs.
func NewFakeRelay(channels ...int) *FakeRelay {
	states := make(map[int]ChannelState, len(channels))
	for _, id := range channels {
		states[id] = ChannelState{}
	}
	return &FakeRelay{states: states}
}

// Set records the command and updates tracked state.
func (f *FakeRelay) Set(channel int, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	st, ok := f.states[channel]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	st.On = on
	if on {
		st.LastTriggered = time.Now()
	}
	f.states[channel] = st
	f.commands = append(f.commands, RelayCommand{Channel: channel, On: on, At: time.Now()})
	return nil
}

// State returns the tracked state of a channel.
func (f *FakeRelay) State(channel int) (ChannelState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[channel]
	if !ok {
		return ChannelState{}, fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	return st, nil
}

// Channels lists the configured channel IDs in ascending order.
func (f *FakeRelay) Channels() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.states))
	for id := range f.states {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Commands returns a copy of all recorded Set calls in order.
func (f *FakeRelay) Commands() []RelayCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RelayCommand, len(f.commands))
	copy(out, f.commands)
	return out
}

// Reset clears recorded commands and switches every channel off.
func (f *FakeRelay) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
	for id := range f.states {
		f.states[id] = ChannelState{}
	}
	f.Closed = false
	f.SetError = nil
}

// Close marks the relay as closed.
func (f *FakeRelay) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, st := range f.states {
		st.On = false
		f.states[id] = st
	}
	f.Closed = true
	return nil
}
