// Package store persists verification records as messages in a chat channel.
//
// The channel is an append-mostly log with no key index. Every operation
// reads one bounded page of recent history and scans it linearly for the
// user's message, so records older than the window are invisible. This is a
// known limit of the layout, not a bug: the window is sized for guild
// membership, not for scale.
//
// Each user owns at most one live message. Upsert edits it in place, appends
// when there is none, and deletes older duplicates it finds in the window.
// Writes are serialized per user id; different users never contend.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"verigate/internal/chat"
	"verigate/internal/identity"
	"verigate/internal/platform/keylock"
	"verigate/internal/verification/metrics"
	"verigate/internal/verification/models"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

// DefaultWindow is the largest page chat platforms return in one call.
const DefaultWindow = 100

// RecordStore maps user ids to record messages in one channel.
type RecordStore struct {
	transport chat.Transport
	channelID string
	window    int
	locks     *keylock.Map

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a RecordStore.
type Option func(*RecordStore)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *RecordStore) {
		s.logger = logger
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RecordStore) {
		s.metrics = m
	}
}

// WithWindow sets how many recent messages are scanned.
func WithWindow(n int) Option {
	return func(s *RecordStore) {
		if n > 0 && n <= DefaultWindow {
			s.window = n
		}
	}
}

// New creates a store over channelID.
func New(transport chat.Transport, channelID string, opts ...Option) *RecordStore {
	s := &RecordStore{
		transport: transport,
		channelID: channelID,
		window:    DefaultWindow,
		locks:     keylock.New(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("verigate/store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadAll rebuilds the user -> record mapping from the window. The newest
// message wins when a user has duplicates. A list failure is returned as a
// KindStoreUnavailable error so startup can decide whether to continue.
func (s *RecordStore) LoadAll(ctx context.Context) (map[string]models.UserRecord, error) {
	ctx, span := s.tracer.Start(ctx, "store.LoadAll")
	defer span.End()
	start := time.Now()

	msgs, err := s.transport.ListRecent(ctx, s.channelID, s.window)
	s.metrics.ObserveStoreOp("load", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, identity.NewError(identity.KindStoreUnavailable, "list record channel", err)
	}

	records := make(map[string]models.UserRecord)
	for _, msg := range msgs {
		if !msg.AuthorIsSelf {
			continue
		}
		rec, ok := Decode(msg.Content)
		if !ok {
			continue
		}
		// Newest first: keep the first one seen.
		if _, seen := records[rec.UserID]; seen {
			continue
		}
		records[rec.UserID] = rec
	}

	span.SetAttributes(
		attribute.Int("store.messages", len(msgs)),
		attribute.Int("store.records", len(records)),
	)
	s.logger.InfoContext(ctx, "loaded records from channel",
		"channel_id", s.channelID,
		"messages", len(msgs),
		"records", len(records),
	)
	return records, nil
}

// Upsert creates or edits the user's record message. Failures are logged and
// absorbed; the caller's in-memory state stays authoritative until the next
// successful write reconciles the channel.
func (s *RecordStore) Upsert(ctx context.Context, rec models.UserRecord) {
	if rec.UserID == "" || rec.Empty() {
		s.logger.DebugContext(ctx, "skipping empty record", "user_id", rec.UserID)
		return
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = requestcontext.Now(ctx).UTC()
	}

	ctx, span := s.tracer.Start(ctx, "store.Upsert", trace.WithAttributes(attribute.String("user_id", rec.UserID)))
	defer span.End()

	unlock := s.locks.Lock(rec.UserID)
	defer unlock()

	start := time.Now()
	err := s.upsertLocked(ctx, rec)
	s.metrics.ObserveStoreOp("upsert", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		s.logger.ErrorContext(ctx, "failed to persist record",
			"user_id", rec.UserID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func (s *RecordStore) upsertLocked(ctx context.Context, rec models.UserRecord) error {
	matches, err := s.find(ctx, rec.UserID)
	if err != nil {
		return err
	}

	dst := chat.ToChannel(s.channelID)
	content := Encode(rec)

	if len(matches) == 0 {
		if _, err := s.transport.Send(ctx, dst, content); err != nil {
			return fmt.Errorf("append record: %w", err)
		}
		return nil
	}

	err = s.transport.Edit(ctx, dst, matches[0].ID, content)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Removed out from under us between list and edit.
		if _, err := s.transport.Send(ctx, dst, content); err != nil {
			return fmt.Errorf("append record: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("edit record %s: %w", matches[0].ID, err)
	}

	s.deleteAll(ctx, rec.UserID, matches[1:])
	s.metrics.AddCompactions(len(matches) - 1)
	return nil
}

// Remove deletes every record message for userID inside the window.
func (s *RecordStore) Remove(ctx context.Context, userID string) {
	ctx, span := s.tracer.Start(ctx, "store.Remove", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	unlock := s.locks.Lock(userID)
	defer unlock()

	start := time.Now()
	matches, err := s.find(ctx, userID)
	if err == nil {
		s.deleteAll(ctx, userID, matches)
	}
	s.metrics.ObserveStoreOp("remove", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remove failed")
		s.logger.ErrorContext(ctx, "failed to remove record",
			"user_id", userID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "removed record", "user_id", userID, "messages", len(matches))
}

// find returns the user's self-authored record messages, newest first.
func (s *RecordStore) find(ctx context.Context, userID string) ([]chat.Message, error) {
	msgs, err := s.transport.ListRecent(ctx, s.channelID, s.window)
	if err != nil {
		return nil, fmt.Errorf("list record channel: %w", err)
	}
	var matches []chat.Message
	for _, msg := range msgs {
		if !msg.AuthorIsSelf {
			continue
		}
		if id, ok := msg.Content.FieldValue(FieldUserID); ok && id == userID {
			matches = append(matches, msg)
		}
	}
	return matches, nil
}

func (s *RecordStore) deleteAll(ctx context.Context, userID string, msgs []chat.Message) {
	dst := chat.ToChannel(s.channelID)
	for _, msg := range msgs {
		err := s.transport.Delete(ctx, dst, msg.ID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to delete record message",
				"user_id", userID,
				"message_id", msg.ID,
				"error", err,
			)
		}
	}
}
