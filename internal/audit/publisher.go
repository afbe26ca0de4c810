// Package audit fans verification events out to the configured sinks: the
// chat audit channel, structured logs and optionally a Kafka topic.
//
// Audit is best effort. A failing sink is logged and never fails the
// verification operation that emitted the event.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher delivers one event to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Multi publishes every event to all sinks in order.
type Multi struct {
	sinks  []Publisher
	logger *slog.Logger
}

// NewMulti creates a fan-out publisher. Nil sinks are skipped.
func NewMulti(logger *slog.Logger, sinks ...Publisher) *Multi {
	m := &Multi{logger: logger}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Publish stamps the timestamp if missing and delivers to every sink. It
// always returns nil; sink errors are logged.
func (m *Multi) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, s := range m.sinks {
		if err := s.Publish(ctx, event); err != nil {
			m.logger.WarnContext(ctx, "audit sink failed",
				"action", event.Action,
				"user_id", event.UserID,
				"request_id", event.RequestID,
				"error", err,
			)
		}
	}
	return nil
}

// LogPublisher writes events as structured log lines.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a slog-backed sink.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "audit",
		"action", event.Action,
		"user_id", event.UserID,
		"remote_id", event.RemoteID,
		"remote_name", event.RemoteName,
		"reason", event.Reason,
		"fingerprint", event.CredentialFingerprint,
		"request_id", event.RequestID,
	)
	return nil
}
