package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verigate/internal/audit"
	"verigate/internal/chat"
	"verigate/internal/chat/memory"
	"verigate/internal/identity"
	"verigate/internal/platform/logger"
	"verigate/internal/verification/models"
)

type NotifySuite struct {
	suite.Suite
	transport *memory.Transport
	notifier  *Notifier
}

func TestNotifySuite(t *testing.T) {
	suite.Run(t, new(NotifySuite))
}

func (s *NotifySuite) SetupTest() {
	s.transport = memory.New()
	s.notifier = New(s.transport,
		WithAuditChannel("logging"),
		WithGuildName("Test Guild"),
		WithMinCredentialLength(20),
		WithLogger(logger.Discard()),
	)
}

func (s *NotifySuite) lastDM(userID string) chat.Content {
	msgs := s.transport.Messages(chat.ToUser(userID))
	s.Require().NotEmpty(msgs)
	return msgs[len(msgs)-1].Content
}

func (s *NotifySuite) TestWelcome() {
	s.Require().NoError(s.notifier.Welcome(context.Background(), "U1"))
	content := s.lastDM("U1")
	s.Contains(content.Title, "Test Guild")
	s.False(content.Timestamp.IsZero())
}

func (s *NotifySuite) TestRejectedNamesEveryKind() {
	kinds := []identity.Kind{
		identity.KindEmptyCredential,
		identity.KindTooShort,
		identity.KindTimeout,
		identity.KindUnauthorized,
		identity.KindForbidden,
		identity.KindRateLimited,
		identity.KindRemoteError,
		identity.KindMalformedResponse,
		identity.KindStoreUnavailable,
		identity.KindThrottled,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		problem, remedy := s.notifier.Explain(k)
		s.NotEmpty(problem, k)
		s.NotEmpty(remedy, k)
		seen[problem] = true
	}
	s.Len(seen, len(kinds), "each kind should read differently")

	s.Require().NoError(s.notifier.Rejected(context.Background(), "U1", identity.KindTooShort))
	s.Contains(s.lastDM("U1").Description, "20 characters")
}

func (s *NotifySuite) TestVerifiedShowsIdentity() {
	id := &identity.Identity{ID: 42, Name: "Alice", DisplayName: "Ally"}
	s.Require().NoError(s.notifier.Verified(context.Background(), "U1", id, false))

	content := s.lastDM("U1")
	name, ok := content.FieldValue("Remote Username")
	s.True(ok)
	s.Equal("Alice", name)
	remoteID, _ := content.FieldValue("Remote ID")
	s.Equal("42", remoteID)
}

func (s *NotifySuite) TestStatus() {
	report := models.StatusReport{
		UserID:           "U1",
		Verified:         true,
		CredentialStored: true,
		GatedAccess:      true,
		Identity:         &identity.Identity{ID: 42, Name: "Alice"},
		LastValidatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.notifier.Status(context.Background(), "U1", report))

	content := s.lastDM("U1")
	access, _ := content.FieldValue("Gated Access")
	s.Equal("Enabled", access)
	last, _ := content.FieldValue("Last Validated")
	s.Equal("2025-06-01T12:00:00Z", last)
}

func (s *NotifySuite) TestPublishToAuditChannel() {
	event := audit.Event{
		Action:                audit.ActionVerified,
		UserID:                "U1",
		RemoteID:              42,
		RemoteName:            "Alice",
		CredentialFingerprint: "0a1b2c3d4e5f",
	}
	s.Require().NoError(s.notifier.Publish(context.Background(), event))

	msgs := s.transport.Messages(chat.ToChannel("logging"))
	s.Require().Len(msgs, 1)
	s.Equal("User Verified", msgs[0].Content.Title)
	for _, f := range msgs[0].Content.Fields {
		s.False(strings.Contains(f.Value, "0a1b2c3d4e5f"), "fingerprint belongs in structured sinks only")
	}
}

func (s *NotifySuite) TestPublishDisabledWithoutChannel() {
	n := New(s.transport, WithLogger(logger.Discard()))
	s.Require().NoError(n.Publish(context.Background(), audit.Event{Action: audit.ActionRemoved, UserID: "U1"}))
	s.Zero(s.transport.Calls(memory.OpSend))
}

func (s *NotifySuite) TestDeliveryFailureIsReturned() {
	boom := errors.New("cannot send messages to this user")
	s.transport.SetFailure(memory.OpSend, boom)

	err := s.notifier.Welcome(context.Background(), "U1")
	s.ErrorIs(err, boom)
}
