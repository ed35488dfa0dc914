// Package monitor implements the sampling loops that turn raw sensor reads
// into debounced state transitions. Each monitor owns one background worker
// that polls on a fixed cadence while in the MONITORING state; Stop joins
// the worker, so no event sink call can happen after Stop returns.
package monitor

import (
	"time"

	"go.uber.org/zap"

	"github.com/hallam/sentinel/internal/logic"
)

// Default polling cadences.
const (
	DefaultMotionInterval = 100 * time.Millisecond
	DefaultPowerInterval  = time.Second
)

// EventSink receives a copy of every state transition. Implementations must
// tolerate being called from the monitor worker goroutine. A panic inside a
// sink is recovered and logged by the monitor, never propagated.
type EventSink interface {
	OnEvent(rec logic.StateRecord, kind logic.EventKind)
}

// MultiSink fans one transition out to several sinks in order.
type MultiSink []EventSink

// OnEvent delivers the transition to each sink in order.
func (m MultiSink) OnEvent(rec logic.StateRecord, kind logic.EventKind) {
	for _, s := range m {
		if s != nil {
			s.OnEvent(rec, kind)
		}
	}
}

// dispatch delivers one transition, containing sink panics.
func dispatch(log *zap.Logger, sink EventSink, rec logic.StateRecord, kind logic.EventKind) {
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("event sink panicked",
				zap.String("channel", string(rec.Channel)),
				zap.String("kind", string(kind)),
				zap.Any("panic", r))
		}
	}()
	sink.OnEvent(rec, kind)
}
