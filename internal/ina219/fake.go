package ina219

import "sync"

// FakeSource is a test double with a settable reading and injectable
// failures.
type FakeSource struct {
	mu sync.Mutex

	reading   Reading
	readErr   error
	connected bool

	// ReconnectError, if set, makes Reconnect fail.
	ReconnectError error

	// Closed tracks if Close was called.
	Closed bool

	reads      int
	reconnects int
}

// NewFakeSource creates a connected FakeSource returning the given reading.
func NewFakeSource(r Reading) *FakeSource {
	return &FakeSource{reading: r, connected: true}
}

// SetReading changes the value returned by ReadAll.
func (f *FakeSource) SetReading(r Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = r
}

// Fail makes subsequent reads return err and marks the source disconnected.
// A nil err restores normal operation.
func (f *FakeSource) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
	f.connected = err == nil
}

// ReadAll returns the configured reading or the injected error.
func (f *FakeSource) ReadAll() (Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return Reading{}, f.readErr
	}
	return f.reading, nil
}

// Connected reports the fake connection state.
func (f *FakeSource) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Reconnect clears an injected failure unless ReconnectError is set.
func (f *FakeSource) Reconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	if f.ReconnectError != nil {
		return f.ReconnectError
	}
	f.readErr = nil
	f.connected = true
	return nil
}

// Reads returns how many times ReadAll was called.
func (f *FakeSource) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Reconnects returns how many times Reconnect was called.
func (f *FakeSource) Reconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnects
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	f.connected = false
	return nil
}
