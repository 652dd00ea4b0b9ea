// Package publisher ships round lifecycle events off the process.
package publisher

import (
	"context"

	"github.com/mcdev12/sumrush/go/internal/events"
	"github.com/rs/zerolog"
)

// EventPublisher delivers lifecycle envelopes to an external sink.
type EventPublisher interface {
	Publish(ctx context.Context, env events.Envelope) error
	Close() error
}

// LogPublisher writes events to a logger. It is used when no bus is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, env events.Envelope) error {
	p.logger.Info().
		Str("event_id", env.ID.String()).
		Str("event_type", string(env.Type)).
		Str("session_id", env.SessionID.String()).
		RawJSON("payload", env.Payload).
		Msg("publishing event")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
