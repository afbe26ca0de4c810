package service

import (
	"context"
	"fmt"

	"verigate/internal/audit"
	"verigate/internal/verification/models"
	"verigate/pkg/requestcontext"
)

// OnMemberJoin sends the onboarding prompt to a member we have never seen,
// and records that it was sent so a rejoin or a restart does not prompt
// again. If the prompt cannot be delivered nothing is recorded, so the next
// join retries.
func (s *Service) OnMemberJoin(ctx context.Context, m models.Member) error {
	unlock := s.locks.Lock(m.UserID)
	defer unlock()

	rec, ok := s.cache.Get(m.UserID)
	if ok && (rec.HasCredential() || !rec.NotifiedAt.IsZero()) {
		s.logger.DebugContext(ctx, "member already known, skipping onboarding",
			"user_id", m.UserID,
			"state", rec.State(),
		)
		return nil
	}

	if err := s.notifier.Welcome(ctx, m.UserID); err != nil {
		return fmt.Errorf("send onboarding prompt: %w", err)
	}

	now := requestcontext.Now(ctx)
	if !ok {
		rec = models.UserRecord{UserID: m.UserID}
	}
	if m.DisplayName != "" {
		rec.DisplayName = m.DisplayName
	}
	rec.NotifiedAt = now
	rec.UpdatedAt = now
	s.persist(ctx, rec)

	s.metrics.IncrementOnboardingPrompt()
	s.logger.InfoContext(ctx, "onboarding prompt sent", "user_id", m.UserID)
	s.emit(ctx, audit.Event{
		Action:      audit.ActionOnboarded,
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
	})
	return nil
}
