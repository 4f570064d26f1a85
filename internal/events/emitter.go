package events

import (
	"github.com/sirupsen/logrus"
)

// Emitter receives structured pipeline events: an event name, the
// correlation id of the invocation, and free-form fields. The pipeline
// emits through this interface instead of logging directly so it stays
// side-effect-free aside from declared store writes.
type Emitter interface {
	Emit(event string, correlationID string, fields map[string]any)
}

// LogrusEmitter writes events through a logrus logger as structured entries.
type LogrusEmitter struct {
	logger *logrus.Logger
}

// NewLogrusEmitter wraps the given logger; a nil logger uses the standard one.
func NewLogrusEmitter(logger *logrus.Logger) *LogrusEmitter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusEmitter{logger: logger}
}

func (e *LogrusEmitter) Emit(event string, correlationID string, fields map[string]any) {
	entry := e.logger.WithField("correlation_id", correlationID)
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	entry.Info(event)
}

// NopEmitter discards events. Useful in tests.
type NopEmitter struct{}

func (NopEmitter) Emit(string, string, map[string]any) {}
