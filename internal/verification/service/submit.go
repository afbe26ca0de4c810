package service

import (
	"context"
	"fmt"
	"strings"

	"verigate/internal/audit"
	"verigate/internal/identity"
	"verigate/internal/verification/models"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

// SubmitCredential validates a credential and, on success, stores it as the
// user's verified credential. Rejections are reported in the Outcome, not as
// an error; the error return is reserved for invalid input.
//
// A first-time failure creates no record and a failure never touches an
// existing record. A success for a different remote account than the one on
// file overwrites it (re-link).
func (s *Service) SubmitCredential(ctx context.Context, sub models.Submission) (models.Outcome, error) {
	if sub.UserID == "" {
		return models.Outcome{}, fmt.Errorf("user id is required: %w", sentinel.ErrBadRequest)
	}

	cred := s.validator.Normalize(sub.Credential)
	switch {
	case cred == "":
		return s.reject(ctx, sub, identity.KindEmptyCredential), nil
	// The floor applies to what the user typed, before any prefix is stripped.
	case len(strings.TrimSpace(sub.Credential)) < s.minLength:
		return s.reject(ctx, sub, identity.KindTooShort), nil
	case !s.allowAttempt(ctx, sub.UserID):
		return s.reject(ctx, sub, identity.KindThrottled), nil
	}

	id, err := s.validator.Validate(ctx, cred)
	if err != nil {
		s.logger.InfoContext(ctx, "credential rejected by identity service",
			"user_id", sub.UserID,
			"request_id", requestcontext.RequestID(ctx),
			"fingerprint", identity.Fingerprint(cred),
			"error", err,
		)
		return s.reject(ctx, sub, identity.KindOf(err)), nil
	}

	now := requestcontext.Now(ctx)

	unlock := s.locks.Lock(sub.UserID)
	rec, existed := s.cache.Get(sub.UserID)
	previous := rec.Identity()
	relinked := existed && previous != nil && previous.ID != id.ID
	if !existed {
		rec = models.UserRecord{UserID: sub.UserID}
	}
	if sub.DisplayName != "" {
		rec.DisplayName = sub.DisplayName
	}
	rec.Credential = cred
	rec.ApplyIdentity(id)
	rec.Verified = true
	rec.LastValidatedAt = now
	rec.UpdatedAt = now
	s.persist(ctx, rec)
	unlock()

	s.metrics.IncrementSubmission("accepted")
	s.logger.InfoContext(ctx, "user verified",
		"user_id", sub.UserID,
		"remote_id", id.ID,
		"remote_name", id.Name,
		"relinked", relinked,
		"request_id", requestcontext.RequestID(ctx),
	)

	_ = s.notifier.Verified(ctx, sub.UserID, id, relinked)

	event := audit.Event{
		Action:                audit.ActionVerified,
		UserID:                sub.UserID,
		DisplayName:           rec.DisplayName,
		RemoteID:              id.ID,
		RemoteName:            id.Name,
		CredentialFingerprint: identity.Fingerprint(cred),
	}
	if relinked {
		event.Action = audit.ActionRelinked
		event.PreviousRemoteName = previous.Name
	}
	s.emit(ctx, event)

	return models.Outcome{Accepted: true, Identity: id, Relinked: relinked}, nil
}

// allowAttempt consults the submission limiter. Limiter errors fail open.
func (s *Service) allowAttempt(ctx context.Context, userID string) bool {
	if s.limiter == nil {
		return true
	}
	res, err := s.limiter.Allow(ctx, "submit:"+userID, s.submitLimit, s.submitWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "submission limiter failed, allowing attempt",
			"user_id", userID,
			"error", err,
		)
		return true
	}
	if !res.Allowed {
		s.logger.InfoContext(ctx, "submission throttled",
			"user_id", userID,
			"reset_at", res.ResetAt,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return res.Allowed
}

func (s *Service) reject(ctx context.Context, sub models.Submission, kind identity.Kind) models.Outcome {
	s.metrics.IncrementSubmission(string(kind))
	_ = s.notifier.Rejected(ctx, sub.UserID, kind)
	s.emit(ctx, audit.Event{
		Action:      audit.ActionRejected,
		UserID:      sub.UserID,
		DisplayName: sub.DisplayName,
		Reason:      string(kind),
	})
	return models.Outcome{Kind: kind}
}
