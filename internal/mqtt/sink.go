package mqtt

import (
	"go.uber.org/zap"

	"github.com/hallam/sentinel/internal/logic"
)

// Sink forwards monitor transitions to a Publisher. A publish failure is
// logged and swallowed so a flaky broker never stalls monitoring.
type Sink struct {
	pub Publisher
	log *zap.Logger
}

// NewSink creates a Sink.
func NewSink(pub Publisher, log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{pub: pub, log: log}
}

// OnEvent publishes the transition.
func (s *Sink) OnEvent(rec logic.StateRecord, kind logic.EventKind) {
	if err := s.pub.Publish(rec, kind); err != nil {
		s.log.Warn("mqtt publish failed",
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
