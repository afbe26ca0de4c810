// Package service is the verification state machine: it accepts credential
// submissions, answers gate checks from the cache, revalidates stale records
// and evicts credentials the identity API no longer accepts.
//
// The service is the only writer of records. Every write goes to the record
// store first and is then mirrored into the cache, so a crash in between is
// repaired by the next Bootstrap.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"verigate/internal/audit"
	"verigate/internal/identity"
	"verigate/internal/platform/keylock"
	"verigate/internal/verification/cache"
	"verigate/internal/verification/metrics"
	"verigate/internal/verification/models"
	"verigate/internal/verification/ratelimit"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

// Validator exchanges a credential for the identity it belongs to.
type Validator interface {
	Normalize(raw string) string
	Validate(ctx context.Context, rawCredential string) (*identity.Identity, error)
}

// RecordStore persists records. Upsert and Remove absorb their own failures.
type RecordStore interface {
	LoadAll(ctx context.Context) (map[string]models.UserRecord, error)
	Upsert(ctx context.Context, rec models.UserRecord)
	Remove(ctx context.Context, userID string)
}

// Notifier delivers user-facing messages.
type Notifier interface {
	Welcome(ctx context.Context, userID string) error
	Verified(ctx context.Context, userID string, id *identity.Identity, relinked bool) error
	Rejected(ctx context.Context, userID string, kind identity.Kind) error
	Expired(ctx context.Context, userID, remoteName string) error
}

// SubmissionLimiter throttles credential attempts per user.
type SubmissionLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error)
}

// AuditPublisher receives verification audit events.
type AuditPublisher interface {
	Publish(ctx context.Context, event audit.Event) error
}

const (
	defaultStaleAfter = time.Hour
	defaultMinLength  = 20
)

// Service orchestrates validation, persistence and notification.
type Service struct {
	validator Validator
	store     RecordStore
	cache     *cache.Cache
	notifier  Notifier

	auditor    AuditPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	staleAfter time.Duration
	minLength  int

	limiter      SubmissionLimiter
	submitLimit  int
	submitWindow time.Duration

	// locks serializes the read-modify-write of one user's record so the
	// store and the cache always end on the same writer.
	locks *keylock.Map
	// revalidations collapses concurrent stale gate checks for one user.
	revalidations singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditPublisher sets where audit events go.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithStaleAfter sets how long a validation is trusted without a remote call.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithMinCredentialLength sets the local plausibility filter.
func WithMinCredentialLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minLength = n
		}
	}
}

// WithSubmissionLimit caps credential attempts that reach the identity API
// at limit per user within window.
func WithSubmissionLimit(l SubmissionLimiter, limit int, window time.Duration) Option {
	return func(s *Service) {
		if l != nil && limit > 0 && window > 0 {
			s.limiter = l
			s.submitLimit = limit
			s.submitWindow = window
		}
	}
}

// New creates a Service.
func New(validator Validator, store RecordStore, c *cache.Cache, notifier Notifier, opts ...Option) (*Service, error) {
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if c == nil {
		return nil, errors.New("cache is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}

	s := &Service{
		validator:  validator,
		store:      store,
		cache:      c,
		notifier:   notifier,
		logger:     slog.Default(),
		staleAfter: defaultStaleAfter,
		minLength:  defaultMinLength,
		locks:      keylock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Bootstrap rebuilds the cache from the record store. On failure the cache is
// left untouched and the error is returned for the caller to decide.
func (s *Service) Bootstrap(ctx context.Context) error {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap cache: %w", err)
	}
	s.cache.Replace(records)

	verified := 0
	for _, rec := range records {
		if rec.Verified {
			verified++
		}
	}
	s.logger.InfoContext(ctx, "verification cache rebuilt", "records", len(records), "verified", verified)
	return nil
}

// Status reports the cached state of a user without calling the remote API.
func (s *Service) Status(_ context.Context, userID string) models.StatusReport {
	rec, ok := s.cache.Get(userID)
	if !ok {
		return models.StatusReport{UserID: userID, State: models.StateUnknown}
	}
	return models.StatusReport{
		UserID:           userID,
		State:            rec.State(),
		Verified:         rec.Verified,
		CredentialStored: rec.HasCredential(),
		GatedAccess:      rec.Verified,
		Identity:         rec.Identity(),
		LastValidatedAt:  rec.LastValidatedAt,
	}
}

// Remove hard-deletes a user's record. It is the only path that forgets a
// user entirely; the user will be prompted again on their next join.
func (s *Service) Remove(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required: %w", sentinel.ErrBadRequest)
	}

	unlock := s.locks.Lock(userID)
	rec, existed := s.cache.Get(userID)
	s.store.Remove(ctx, userID)
	s.cache.Delete(userID)
	unlock()

	if !existed {
		return fmt.Errorf("record for %s: %w", userID, sentinel.ErrNotFound)
	}

	s.logger.InfoContext(ctx, "record removed",
		"user_id", userID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Action:      audit.ActionRemoved,
		UserID:      userID,
		DisplayName: rec.DisplayName,
		RemoteID:    rec.RemoteID,
		RemoteName:  rec.RemoteName,
		Reason:      "administrative removal",
	})
	return nil
}

// persist writes rec to the store and then the cache. Callers hold the
// user's lock.
func (s *Service) persist(ctx context.Context, rec models.UserRecord) {
	s.store.Upsert(ctx, rec)
	s.cache.Set(rec)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := s.auditor.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"action", event.Action,
			"user_id", event.UserID,
			"error", err,
		)
	}
}
