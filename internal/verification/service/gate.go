package service

import (
	"context"
	"time"

	"verigate/internal/audit"
	"verigate/internal/identity"
	"verigate/internal/verification/models"
	"verigate/pkg/requestcontext"
)

// CheckGate decides whether userID may perform a gated action.
//
// Fresh records are answered from the cache. Stale ones are revalidated once,
// however many checks arrive concurrently: success refreshes the record,
// a terminal failure evicts the credential, and a transient failure denies
// this check without touching state.
func (s *Service) CheckGate(ctx context.Context, userID string) models.GateDecision {
	rec, ok := s.cache.Get(userID)
	if !ok || !rec.HasCredential() {
		return s.decide(models.GateDecision{Reason: models.ReasonNotVerified})
	}

	now := requestcontext.Now(ctx)
	if rec.Verified && !rec.Stale(now, s.staleAfter) {
		return s.decide(models.GateDecision{
			Allowed:     true,
			Identity:    rec.Identity(),
			ValidatedAt: rec.LastValidatedAt,
		})
	}

	// Waiters share the flight, so one caller going away must not cancel it.
	flightCtx := context.WithoutCancel(ctx)
	v, _, _ := s.revalidations.Do(userID, func() (any, error) {
		return s.revalidate(flightCtx, userID), nil
	})
	return s.decide(v.(models.GateDecision))
}

func (s *Service) revalidate(ctx context.Context, userID string) models.GateDecision {
	rec, ok := s.cache.Get(userID)
	if !ok || !rec.HasCredential() {
		return models.GateDecision{Reason: models.ReasonNotVerified}
	}
	now := requestcontext.Now(ctx)
	// A flight that finished just before this one may have refreshed it.
	if rec.Verified && !rec.Stale(now, s.staleAfter) {
		return models.GateDecision{Allowed: true, Identity: rec.Identity(), ValidatedAt: rec.LastValidatedAt}
	}
	cred := rec.Credential

	id, err := s.validator.Validate(ctx, cred)

	if err != nil {
		kind := identity.KindOf(err)
		if !kind.Terminal() {
			s.metrics.IncrementRevalidation("transient_" + string(kind))
			s.logger.WarnContext(ctx, "revalidation failed, keeping cached state",
				"user_id", userID,
				"kind", kind,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			return models.GateDecision{Reason: models.ReasonTemporarilyUnavailable, FailureKind: kind}
		}

		s.metrics.IncrementRevalidation("evicted")
		s.evict(ctx, userID, cred, kind, now)
		return models.GateDecision{Reason: models.ReasonExpired, FailureKind: kind}
	}

	unlock := s.locks.Lock(userID)
	cur, ok := s.cache.Get(userID)
	// A newer submission may have replaced the credential while we were
	// waiting on the remote call; its record is already fresh.
	current := ok && cur.Credential == cred
	var previous *identity.Identity
	if current {
		previous = cur.Identity()
		cur.ApplyIdentity(id)
		cur.Verified = true
		cur.LastValidatedAt = now
		cur.UpdatedAt = now
		s.persist(ctx, cur)
	}
	unlock()
	relinked := previous != nil && previous.ID != id.ID

	s.metrics.IncrementRevalidation("refreshed")
	if relinked {
		s.logger.InfoContext(ctx, "credential now resolves to a different remote account",
			"user_id", userID,
			"previous_remote_id", previous.ID,
			"remote_id", id.ID,
		)
		s.emit(ctx, audit.Event{
			Action:             audit.ActionRelinked,
			UserID:             userID,
			DisplayName:        cur.DisplayName,
			RemoteID:           id.ID,
			RemoteName:         id.Name,
			PreviousRemoteName: previous.Name,
			Reason:             "revalidation",
		})
	}

	return models.GateDecision{
		Allowed:     true,
		Identity:    id,
		Revalidated: true,
		ValidatedAt: now,
	}
}

// evict clears a rejected credential from store and cache, keeping the record
// as a tombstone, then tells the user.
func (s *Service) evict(ctx context.Context, userID, cred string, kind identity.Kind, now time.Time) {
	unlock := s.locks.Lock(userID)
	rec, ok := s.cache.Get(userID)
	// Only evict the credential that failed; a fresh submission wins.
	evicted := ok && rec.Credential == cred
	if evicted {
		rec.Evict(now)
		rec.UpdatedAt = now
		s.persist(ctx, rec)
	}
	unlock()

	if !evicted {
		return
	}

	s.logger.InfoContext(ctx, "credential evicted",
		"user_id", userID,
		"kind", kind,
		"fingerprint", identity.Fingerprint(cred),
		"request_id", requestcontext.RequestID(ctx),
	)
	_ = s.notifier.Expired(ctx, userID, rec.RemoteName)
	s.emit(ctx, audit.Event{
		Action:                audit.ActionExpired,
		UserID:                userID,
		DisplayName:           rec.DisplayName,
		RemoteID:              rec.RemoteID,
		RemoteName:            rec.RemoteName,
		Reason:                string(kind),
		CredentialFingerprint: identity.Fingerprint(cred),
	})
}

// decide records the gate outcome metric and returns d unchanged.
func (s *Service) decide(d models.GateDecision) models.GateDecision {
	if d.Allowed {
		s.metrics.IncrementGateDecision("allowed")
	} else {
		s.metrics.IncrementGateDecision(string(d.Reason))
	}
	return d
}
