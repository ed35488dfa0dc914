package web

import (
	"encoding/json"
	"time"

	"github.com/hallam/sentinel/internal/logic"
)

// HistoryJSON is the top-level JSON envelope for /history.json.
type HistoryJSON struct {
	Count   int          `json:"count"`
	Records []RecordJSON `json:"records"`
}

// RecordJSON is the JSON representation of one state record.
type RecordJSON struct {
	Timestamp  string   `json:"timestamp"`
	Channel    string   `json:"channel"`
	State      string   `json:"state,omitempty"`
	Triggers   uint64   `json:"triggers,omitempty"`
	DurationS  *float64 `json:"duration_s,omitempty"`
	Battery    string   `json:"battery,omitempty"`
	Voltage    *float64 `json:"voltage,omitempty"`
	Current    *float64 `json:"current,omitempty"`
	Power      *float64 `json:"power,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
	Charging   *bool    `json:"charging,omitempty"`
	RuntimeMin *float64 `json:"runtime_min,omitempty"`
}

func toRecordJSON(rec logic.StateRecord) RecordJSON {
	rj := RecordJSON{
		Timestamp: rec.Time.UTC().Format(time.RFC3339),
		Channel:   string(rec.Channel),
	}
	switch rec.Channel {
	case logic.ChannelPower:
		voltage, current, power, pct := rec.Voltage, rec.Current, rec.Power, rec.Percentage
		charging := rec.Charging
		rj.Battery = string(rec.Battery)
		rj.Voltage = &voltage
		rj.Current = &current
		rj.Power = &power
		rj.Percentage = &pct
		rj.Charging = &charging
		if rec.HasRuntime {
			runtime := rec.RuntimeMin
			rj.RuntimeMin = &runtime
		}
	default:
		rj.State = string(rec.Motion)
		rj.Triggers = rec.Triggers
		if rec.HasDuration {
			seconds := rec.Duration.Seconds()
			rj.DurationS = &seconds
		}
	}
	return rj
}

func formatHistory(recs []logic.StateRecord) []byte {
	out := HistoryJSON{
		Count:   len(recs),
		Records: make([]RecordJSON, 0, len(recs)),
	}
	for _, rec := range recs {
		out.Records = append(out.Records, toRecordJSON(rec))
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return data
}
