package logging

import "sync"

// Sink is the single capability the transcription pipeline depends on for
// progress reporting: accept a leveled message. Front ends (CLI, bots, UIs)
// provide an implementation and are responsible for marshalling events onto
// their own thread if required.
type Sink interface {
	Event(msg string, level Level)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(msg string, level Level)

// Event calls f(msg, level).
func (f SinkFunc) Event(msg string, level Level) {
	f(msg, level)
}

// LoggerSink adapts a Logger to the Sink interface so pipeline events flow
// into the structured log.
func LoggerSink(l Logger) Sink {
	return SinkFunc(func(msg string, level Level) {
		switch level {
		case LevelDebug:
			l.Debug(msg)
		case LevelWarn:
			l.Warn(msg)
		case LevelError:
			l.Error(msg)
		case LevelHighlight:
			l.Highlight(msg)
		default:
			l.Info(msg)
		}
	})
}

// Event is one recorded sink message.
type Event struct {
	Message string
	Level   Level
}

// CaptureSink records events in memory. Safe for concurrent use; intended
// for tests and for front ends that render the event stream themselves.
type CaptureSink struct {
	mu     sync.Mutex
	events []Event
}

// Event appends the message to the in-memory record.
func (c *CaptureSink) Event(msg string, level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, Event{Message: msg, Level: level})
}

// Events returns a copy of the recorded events in arrival order.
func (c *CaptureSink) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
