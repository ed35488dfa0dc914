package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hallam/sentinel/internal/control"
	"github.com/hallam/sentinel/internal/gpio"
	"github.com/hallam/sentinel/internal/history"
	"github.com/hallam/sentinel/internal/ina219"
	"github.com/hallam/sentinel/internal/logic"
	"github.com/hallam/sentinel/internal/monitor"
	"github.com/hallam/sentinel/internal/mqtt"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

// TestIntegrationMotionToRelay runs the full chain with fakes: PIR source ->
// motion monitor -> controller in auto mode -> relay, with MQTT publishing
// alongside.
func TestIntegrationMotionToRelay(t *testing.T) {
	src := gpio.NewFakeSource(false)
	relay := gpio.NewFakeRelay(1)
	pub := mqtt.NewFakePublisher()
	hist := history.New(32)

	ctrl := control.New(control.Config{
		AutoEnabled:    true,
		TriggerChannel: 1,
		AutoDelay:      30 * time.Millisecond,
		Cooldown:       time.Millisecond,
	}, relay, nil)
	if err := ctrl.SetMode(control.ModeAuto); err != nil {
		t.Fatal(err)
	}

	sink := monitor.MultiSink{ctrl, mqtt.NewSink(pub, nil)}
	motion := monitor.NewMotion(monitor.MotionConfig{
		Source:   src,
		Sink:     sink,
		History:  hist,
		Interval: 5 * time.Millisecond,
	})

	motion.Start()
	defer motion.Stop()

	// Let the monitor observe the initial clear state before raising the
	// signal, so the transition is a genuine rise.
	waitFor(t, time.Second, func() bool {
		return src.Reads() >= 1
	}, "source never polled")

	// Motion rises: relay must come on and an ACTIVE_START must publish.
	src.Set(true)
	waitFor(t, time.Second, func() bool {
		st, _ := relay.State(1)
		return st.On
	}, "relay never turned on after motion")
	waitFor(t, time.Second, func() bool {
		return pub.EventCount() >= 1
	}, "ACTIVE_START never published")

	// Motion ends: the off-delay runs and the relay turns off on its own.
	src.Set(false)
	waitFor(t, time.Second, func() bool {
		st, _ := relay.State(1)
		return !st.On
	}, "relay never turned off after the delay")

	motion.Stop()

	if hist.Len() < 2 {
		t.Errorf("history: got %d records, want at least 2", hist.Len())
	}

	// Published payloads carry the wire format end to end.
	var payload mqtt.Payload
	if err := json.Unmarshal(pub.Payloads[0], &payload); err != nil {
		t.Fatalf("published payload not valid JSON: %v", err)
	}
	if payload.Sentinel.Event != "ACTIVE_START" {
		t.Errorf("first event: got %s, want ACTIVE_START", payload.Sentinel.Event)
	}
	if payload.Sentinel.Motion == nil || payload.Sentinel.Motion.State != "ACTIVE" {
		t.Errorf("first payload motion: got %+v", payload.Sentinel.Motion)
	}
}

// TestIntegrationPowerToMQTT runs the battery chain with fakes: INA219 source
// -> power monitor -> MQTT, checking the derived fields survive the trip.
func TestIntegrationPowerToMQTT(t *testing.T) {
	sensor := ina219.NewFakeSource(ina219.Reading{Voltage: 12.6, Current: 0.5, Power: 6.3})
	pub := mqtt.NewFakePublisher()
	hist := history.New(32)

	power := monitor.NewPower(monitor.PowerConfig{
		Source:        sensor,
		Sink:          mqtt.NewSink(pub, nil),
		History:       hist,
		Interval:      5 * time.Millisecond,
		Breakpoints:   logic.DefaultBreakpoints(),
		MinVoltage:    9.0,
		MaxVoltage:    12.6,
		CapacityAh:    7.0,
		EnableRuntime: true,
	})

	power.Start()
	defer power.Stop()

	waitFor(t, time.Second, func() bool {
		return pub.EventCount() >= 1
	}, "STATUS_CHANGED never published")

	// Drop to LOW: a second transition must publish.
	sensor.SetReading(ina219.Reading{Voltage: 11.2, Current: -0.4, Power: 4.5})
	waitFor(t, time.Second, func() bool {
		return pub.EventCount() >= 2
	}, "second STATUS_CHANGED never published")

	power.Stop()

	var first mqtt.Payload
	if err := json.Unmarshal(pub.Payloads[0], &first); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	b := first.Sentinel.Battery
	if b == nil {
		t.Fatal("battery payload missing")
	}
	if b.Status != "EXCELLENT" || b.Percentage != 100 || !b.Charging {
		t.Errorf("first battery payload: got %+v", b)
	}
	if b.RuntimeMin == nil || *b.RuntimeMin != 840 {
		t.Errorf("runtime: got %v, want 840", b.RuntimeMin)
	}

	var second mqtt.Payload
	if err := json.Unmarshal(pub.Payloads[1], &second); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if second.Sentinel.Battery.Status != "LOW" {
		t.Errorf("second battery payload status: got %s", second.Sentinel.Battery.Status)
	}

	if hist.Len() < 2 {
		t.Errorf("history: got %d records, want at least 2", hist.Len())
	}
}

// TestIntegrationTimerMode checks the timer chain: one trigger arms the
// fixed-duration timer and the relay turns off regardless of motion.
func TestIntegrationTimerMode(t *testing.T) {
	src := gpio.NewFakeSource(false)
	relay := gpio.NewFakeRelay(1)

	ctrl := control.New(control.Config{
		TimerEnabled:   true,
		TriggerChannel: 1,
		TimerDuration:  40 * time.Millisecond,
	}, relay, nil)
	if err := ctrl.SetMode(control.ModeTimer); err != nil {
		t.Fatal(err)
	}

	motion := monitor.NewMotion(monitor.MotionConfig{
		Source:   src,
		Sink:     ctrl,
		Interval: 5 * time.Millisecond,
	})
	motion.Start()
	defer motion.Stop()

	// Let the monitor observe the initial clear state before raising the
	// signal, so the transition is a genuine rise.
	waitFor(t, time.Second, func() bool {
		return src.Reads() >= 1
	}, "source never polled")

	src.Set(true)
	waitFor(t, time.Second, func() bool {
		st, _ := relay.State(1)
		return st.On
	}, "relay never turned on in timer mode")

	// Motion stays active the whole time; the off is unconditional.
	waitFor(t, time.Second, func() bool {
		st, _ := relay.State(1)
		return !st.On
	}, "relay never turned off at the timer deadline")

	// Exactly one on command: mid-timer polls must not re-trigger.
	on := 0
	for _, cmd := range relay.Commands() {
		if cmd.On {
			on++
		}
	}
	if on != 1 {
		t.Errorf("relay on commands: got %d, want 1", on)
	}
}
