package logic

// Edge is the result of comparing a new sample against the previous state.
type Edge int

const (
	NoChange Edge = iota
	Rose
	Fell
)

func (e Edge) String() string {
	switch e {
	case Rose:
		return "ROSE"
	case Fell:
		return "FELL"
	default:
		return "NO_CHANGE"
	}
}

// EdgeDetector converts a stream of boolean samples into edge transitions.
// A sample identical to the previous state is always NoChange, so a flat
// signal never produces events. The very first valid sample primes the
// detector and is itself NoChange.
type EdgeDetector struct {
	prev   bool
	primed bool
}

// Update feeds one sample into the detector and returns the edge it produced.
// Invalid samples are ignored and never change state.
func (d *EdgeDetector) Update(s Sample) Edge {
	if !s.Valid {
		return NoChange
	}
	if !d.primed {
		d.primed = true
		d.prev = s.Active
		return NoChange
	}
	if s.Active == d.prev {
		return NoChange
	}
	d.prev = s.Active
	if s.Active {
		return Rose
	}
	return Fell
}

// State returns the current debounced boolean state. The second return value
// is false until the detector has seen its first valid sample.
func (d *EdgeDetector) State() (active, primed bool) {
	return d.prev, d.primed
}

// Reset returns the detector to its unprimed state.
func (d *EdgeDetector) Reset() {
	d.prev = false
	d.primed = false
}
