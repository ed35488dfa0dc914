package logic

import "fmt"

// Breakpoint maps a voltage threshold to a battery status. A value meets a
// breakpoint when it is greater than or equal to the threshold.
type Breakpoint struct {
	Threshold float64
	Status    BatteryStatus
}

// Breakpoints is an ordered breakpoint table, highest threshold first.
// Classification checks breakpoints high-to-low; the first one the value
// meets or exceeds wins. A value below every breakpoint is BatteryUnknown.
type Breakpoints []Breakpoint

// DefaultBreakpoints is the stock table for a 3-cell 12V lead-acid pack.
func DefaultBreakpoints() Breakpoints {
	return Breakpoints{
		{Threshold: 12.0, Status: BatteryExcellent},
		{Threshold: 11.5, Status: BatteryGood},
		{Threshold: 11.0, Status: BatteryLow},
		{Threshold: 10.0, Status: BatteryCritical},
	}
}

// Validate checks that thresholds are strictly descending.
func (b Breakpoints) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("breakpoint table is empty")
	}
	for i := 1; i < len(b); i++ {
		if b[i].Threshold >= b[i-1].Threshold {
			return fmt.Errorf("breakpoints not descending: %.2f (%s) followed by %.2f (%s)",
				b[i-1].Threshold, b[i-1].Status, b[i].Threshold, b[i].Status)
		}
	}
	return nil
}

// Classify buckets a voltage into a discrete status. Pure function: same
// value and table always yield the same status.
func (b Breakpoints) Classify(voltage float64) BatteryStatus {
	for _, bp := range b {
		if voltage >= bp.Threshold {
			return bp.Status
		}
	}
	return BatteryUnknown
}

// Percentage maps a voltage linearly onto 0..100 between min and max.
// Values outside the range clamp. This is the canonical percentage model;
// it is deliberately independent of the status breakpoint table.
func Percentage(voltage, min, max float64) float64 {
	if max <= min {
		return 0
	}
	if voltage <= min {
		return 0
	}
	if voltage >= max {
		return 100
	}
	return (voltage - min) / (max - min) * 100
}

// IsCharging reports whether the pack is charging. Positive current flows
// into the battery; negative current is discharge.
func IsCharging(current float64) bool {
	return current > 0
}

// EstimateRuntime estimates remaining runtime in minutes from the battery
// capacity and the present current draw: capacity / |current|, in minutes.
// The second return value is false when no estimate is available
// (current <= 0 or zero capacity).
func EstimateRuntime(capacityAh, current float64) (minutes float64, ok bool) {
	if capacityAh <= 0 || current <= 0 {
		return 0, false
	}
	return capacityAh / current * 60, true
}
