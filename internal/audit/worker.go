package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const flushTimeout = 5 * time.Second

// ErrQueueFull is returned when the async queue cannot accept an event.
var ErrQueueFull = errors.New("audit queue full")

// Queue decouples slow sinks (Kafka) from the request path. Publish never
// blocks; Run drains the inbox into the wrapped sink.
type Queue struct {
	sink   Publisher
	inbox  chan Event
	logger *slog.Logger
}

// NewQueue creates a queue holding up to size pending events.
func NewQueue(sink Publisher, size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{sink: sink, inbox: make(chan Event, size), logger: logger}
}

// Publish enqueues the event or reports ErrQueueFull.
func (q *Queue) Publish(_ context.Context, event Event) error {
	select {
	case q.inbox <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is done, then spends at most
// flushTimeout delivering what is left.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
			q.flush(flushCtx)
			cancel()
			return nil
		case event := <-q.inbox:
			q.deliver(ctx, event)
		}
	}
}

func (q *Queue) flush(ctx context.Context) {
	for {
		select {
		case event := <-q.inbox:
			q.deliver(ctx, event)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, event Event) {
	if err := q.sink.Publish(ctx, event); err != nil {
		q.logger.WarnContext(ctx, "audit delivery failed",
			"action", event.Action,
			"user_id", event.UserID,
			"error", err,
		)
	}
}
