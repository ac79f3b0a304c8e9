// Package usage records per-request accounting events for outbound API
// traffic. Recording is fire-and-forget: a sink must never fail the request
// it accounts for.
package usage

import (
	"time"

	"github.com/rs/zerolog"
)

// Event describes one completed request attempt against the external service.
type Event struct {
	ID         string    `json:"id"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink consumes usage events. The API client calls the sink unconditionally;
// disabling tracking means wiring the NopSink, not branching in the request
// path.
type Sink interface {
	Record(event Event)
}

var _ Sink = NopSink{}
var _ Sink = (*LogSink)(nil)

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(Event) {}

// LogSink writes events to a structured log.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(event Event) {
	s.logger.Info().
		Str("event_id", event.ID).
		Str("endpoint", event.Endpoint).
		Str("method", event.Method).
		Int("status_code", event.StatusCode).
		Time("timestamp", event.Timestamp).
		Msg("api usage")
}
