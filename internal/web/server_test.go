package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hallam/sentinel/internal/control"
	"github.com/hallam/sentinel/internal/gpio"
	"github.com/hallam/sentinel/internal/history"
	"github.com/hallam/sentinel/internal/logic"
	"github.com/hallam/sentinel/internal/status"
)

type testEnv struct {
	ts      *httptest.Server
	tracker *status.Tracker
	hist    *history.Log
	relay   *gpio.FakeRelay
	ctrl    *control.Controller
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		MotionIntervalMs: 100,
		PowerIntervalMs:  1000,
		CooldownS:        10,
		Broker:           "tcp://192.168.1.200:1883",
		HTTPPort:         ":8080",
	}
	tr := status.NewTracker(start, cfg)
	hist := history.New(64)
	relay := gpio.NewFakeRelay(1, 2)
	ctrl := control.New(control.Config{
		TriggerChannel: 1,
		PulseDuration:  time.Millisecond,
	}, relay, nil)

	srv := New(":0", tr, hist, ctrl, nil)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, tracker: tr, hist: hist, relay: relay, ctrl: ctrl}
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestServer(t)
	env.tracker.SetMode("auto")
	env.tracker.UpdateMotion(status.MotionInfo{State: logic.MotionActive, Triggers: 5})
	env.tracker.UpdatePower(status.PowerInfo{Battery: logic.BatteryGood, Voltage: 11.8, Connected: true})
	env.tracker.SetMQTTConnected(true)

	resp, err := http.Get(env.ts.URL + "/status.json")
	if err != nil {
		t.Fatalf("GET /status.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Mode != "auto" {
		t.Errorf("mode: got %q, want auto", sj.Status.Mode)
	}
	if sj.Status.Motion.State != "ACTIVE" || sj.Status.Motion.Triggers != 5 {
		t.Errorf("motion: got %+v", sj.Status.Motion)
	}
	if sj.Status.Power.Status != "GOOD" {
		t.Errorf("battery: got %q, want GOOD", sj.Status.Power.Status)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
}

func TestStatusUnknownBeforeFirstSample(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.ts.URL + "/status.json")
	if err != nil {
		t.Fatalf("GET /status.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	json.NewDecoder(resp.Body).Decode(&sj)

	if sj.Status.Motion.State != "UNKNOWN" {
		t.Errorf("motion before first sample: got %q, want UNKNOWN", sj.Status.Motion.State)
	}
	if sj.Status.Power.Status != "UNKNOWN" {
		t.Errorf("battery before first sample: got %q, want UNKNOWN", sj.Status.Power.Status)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestServer(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		env.hist.Append(logic.StateRecord{
			Time:     base.Add(time.Duration(i) * time.Second),
			Channel:  logic.ChannelMotion,
			Motion:   logic.MotionActive,
			Triggers: uint64(i + 1),
		})
	}

	resp, err := http.Get(env.ts.URL + "/history.json?limit=3")
	if err != nil {
		t.Fatalf("GET /history.json: %v", err)
	}
	defer resp.Body.Close()

	var hj HistoryJSON
	if err := json.NewDecoder(resp.Body).Decode(&hj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if hj.Count != 3 {
		t.Fatalf("count: got %d, want 3", hj.Count)
	}
	// Most recent last, chronological.
	if hj.Records[2].Triggers != 5 {
		t.Errorf("last record triggers: got %d, want 5", hj.Records[2].Triggers)
	}
	if hj.Records[0].Timestamp != "2026-01-01T12:00:02Z" {
		t.Errorf("first record timestamp: got %s", hj.Records[0].Timestamp)
	}
}

func TestHistoryEndpointBadLimit(t *testing.T) {
	env := newTestServer(t)
	resp, err := http.Get(env.ts.URL + "/history.json?limit=bogus")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestHistoryEndpointPowerRecord(t *testing.T) {
	env := newTestServer(t)
	runtime := 840.0
	env.hist.Append(logic.StateRecord{
		Time:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Channel:    logic.ChannelPower,
		Battery:    logic.BatteryExcellent,
		Voltage:    12.6,
		Current:    0.5,
		Percentage: 100,
		Charging:   true,
		RuntimeMin: runtime,
		HasRuntime: true,
	})

	resp, err := http.Get(env.ts.URL + "/history.json")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var hj HistoryJSON
	if err := json.NewDecoder(resp.Body).Decode(&hj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if hj.Count != 1 {
		t.Fatalf("count: got %d, want 1", hj.Count)
	}
	rec := hj.Records[0]
	if rec.Channel != "power" || rec.Battery != "EXCELLENT" {
		t.Errorf("record: got %+v", rec)
	}
	if rec.Voltage == nil || *rec.Voltage != 12.6 {
		t.Errorf("voltage: got %v", rec.Voltage)
	}
	if rec.RuntimeMin == nil || *rec.RuntimeMin != 840 {
		t.Errorf("runtime: got %v", rec.RuntimeMin)
	}
	if rec.State != "" || rec.DurationS != nil {
		t.Error("power record must not carry motion fields")
	}
}

func TestRelayEndpoint(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Post(env.ts.URL+"/api/relay", "application/json",
		strings.NewReader(`{"channel":2,"action":"on"}`))
	if err != nil {
		t.Fatalf("POST /api/relay: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if st, _ := env.relay.State(2); !st.On {
		t.Error("relay 2 should be on")
	}

	// Unknown channel rejected.
	resp, err = http.Post(env.ts.URL+"/api/relay", "application/json",
		strings.NewReader(`{"channel":9,"action":"on"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("unknown channel: got %d, want 400", resp.StatusCode)
	}

	// Unknown action rejected.
	resp, err = http.Post(env.ts.URL+"/api/relay", "application/json",
		strings.NewReader(`{"channel":1,"action":"blink"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("unknown action: got %d, want 400", resp.StatusCode)
	}

	// GET not allowed.
	resp, err = http.Get(env.ts.URL + "/api/relay")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 405 {
		t.Errorf("GET /api/relay: got %d, want 405", resp.StatusCode)
	}
}

func TestModeEndpoint(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Post(env.ts.URL+"/api/mode", "application/json",
		strings.NewReader(`{"mode":"auto"}`))
	if err != nil {
		t.Fatalf("POST /api/mode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if env.ctrl.Mode() != control.ModeAuto {
		t.Errorf("controller mode: got %s, want auto", env.ctrl.Mode())
	}
	if env.tracker.Snapshot().Mode != "auto" {
		t.Error("tracker mode not updated")
	}

	resp, err = http.Post(env.ts.URL+"/api/mode", "application/json",
		strings.NewReader(`{"mode":"party"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("invalid mode: got %d, want 400", resp.StatusCode)
	}
	if env.ctrl.Mode() != control.ModeAuto {
		t.Error("failed mode change must not alter controller mode")
	}
}

func TestHTMLEndpoint(t *testing.T) {
	env := newTestServer(t)
	env.tracker.UpdateMotion(status.MotionInfo{State: logic.MotionClear})

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(env.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != 200 {
			t.Errorf("GET %s: got %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("GET %s Content-Type: got %q", path, ct)
		}
		resp.Body.Close()
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}
