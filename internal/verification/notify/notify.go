// Package notify turns verification outcomes into human-readable chat
// messages: DMs to the user and entries in the audit channel.
//
// Delivery is best effort. Failures are logged and returned so the one caller
// that cares (onboarding) can react; everyone else ignores them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"verigate/internal/audit"
	"verigate/internal/chat"
	"verigate/internal/identity"
	"verigate/internal/verification/models"
	"verigate/pkg/requestcontext"
)

const footer = "verigate"

// Notifier formats and sends notifications.
type Notifier struct {
	transport      chat.Transport
	auditChannelID string
	guildName      string
	minLength      int
	logger         *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAuditChannel sets the channel audit entries are posted to. Empty
// disables the chat audit sink.
func WithAuditChannel(channelID string) Option {
	return func(n *Notifier) {
		n.auditChannelID = channelID
	}
}

// WithGuildName sets the server name used in the welcome message.
func WithGuildName(name string) Option {
	return func(n *Notifier) {
		n.guildName = name
	}
}

// WithMinCredentialLength is quoted in the too-short rejection.
func WithMinCredentialLength(n int) Option {
	return func(nt *Notifier) {
		nt.minLength = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// New creates a Notifier on transport.
func New(transport chat.Transport, opts ...Option) *Notifier {
	n := &Notifier{
		transport: transport,
		guildName: "the server",
		minLength: 20,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Welcome sends the onboarding prompt.
func (n *Notifier) Welcome(ctx context.Context, userID string) error {
	return n.dm(ctx, userID, "welcome", chat.Content{
		Title:       fmt.Sprintf("Welcome to %s", n.guildName),
		Description: "You can chat right away. Gated features need a verified account.",
		Color:       chat.ColorInfo,
		Fields: []chat.Field{
			{Name: "How to verify", Value: "Reply to this message with your access credential."},
			{Name: "Commands", Value: "`!status` shows your verification state, `!help` shows these instructions."},
		},
	})
}

// Verified confirms an accepted submission.
func (n *Notifier) Verified(ctx context.Context, userID string, id *identity.Identity, relinked bool) error {
	desc := "Your account is verified. Gated features are now unlocked."
	if relinked {
		desc = "Your verification now points to a different remote account."
	}
	return n.dm(ctx, userID, "verified", chat.Content{
		Title:       "Verification successful",
		Description: desc,
		Color:       chat.ColorSuccess,
		Fields:      identityFields(id),
	})
}

// Rejected explains why a submission failed and what to do next.
func (n *Notifier) Rejected(ctx context.Context, userID string, kind identity.Kind) error {
	problem, remedy := n.Explain(kind)
	return n.dm(ctx, userID, "rejected", chat.Content{
		Title:       "Verification failed",
		Description: problem,
		Color:       chat.ColorError,
		Fields:      []chat.Field{{Name: "What to do", Value: remedy}},
	})
}

// Expired tells the user their stored credential stopped working.
func (n *Notifier) Expired(ctx context.Context, userID, remoteName string) error {
	desc := "Your stored credential is no longer valid and has been removed."
	if remoteName != "" {
		desc = fmt.Sprintf("The credential for %s is no longer valid and has been removed.", remoteName)
	}
	return n.dm(ctx, userID, "expired", chat.Content{
		Title:       "Verification expired",
		Description: desc,
		Color:       chat.ColorWarning,
		Fields:      []chat.Field{{Name: "What to do", Value: "Send a fresh credential in this DM to verify again."}},
	})
}

// Status replies to a status request.
func (n *Notifier) Status(ctx context.Context, userID string, report models.StatusReport) error {
	fields := []chat.Field{
		{Name: "Verified", Value: check(report.Verified), Inline: true},
		{Name: "Credential Stored", Value: check(report.CredentialStored), Inline: true},
		{Name: "Gated Access", Value: enabled(report.GatedAccess), Inline: true},
	}
	if report.Identity != nil {
		fields = append(fields, identityFields(report.Identity)...)
	}
	if !report.LastValidatedAt.IsZero() {
		fields = append(fields, chat.Field{Name: "Last Validated", Value: report.LastValidatedAt.UTC().Format(time.RFC3339)})
	}
	color := chat.ColorWarning
	if report.Verified {
		color = chat.ColorSuccess
	}
	return n.dm(ctx, userID, "status", chat.Content{
		Title:  "Verification status",
		Color:  color,
		Fields: fields,
	})
}

// Help sends submission instructions.
func (n *Notifier) Help(ctx context.Context, userID string) error {
	return n.dm(ctx, userID, "help", chat.Content{
		Title:       "How verification works",
		Description: "Send your access credential as a direct message to this bot.",
		Color:       chat.ColorInfo,
		Fields: []chat.Field{
			{Name: "Format", Value: fmt.Sprintf("Paste the whole credential, at least %d characters.", n.minLength)},
			{Name: "Privacy", Value: "The credential is only used to confirm which account you own."},
			{Name: "Commands", Value: "`!status`, `!help`"},
		},
	})
}

// Failed tells the user their request could not be processed at all.
func (n *Notifier) Failed(ctx context.Context, userID string) error {
	return n.dm(ctx, userID, "failed", chat.Content{
		Title:       "Something went wrong",
		Description: "Your request could not be processed. Please try again in a few minutes.",
		Color:       chat.ColorError,
	})
}

// Publish posts an audit event to the audit channel. It implements
// audit.Publisher.
func (n *Notifier) Publish(ctx context.Context, event audit.Event) error {
	if n.auditChannelID == "" {
		return nil
	}
	content := auditContent(event)
	if _, err := n.transport.Send(ctx, chat.ToChannel(n.auditChannelID), content); err != nil {
		return fmt.Errorf("post audit entry: %w", err)
	}
	return nil
}

// Explain returns a plain-language problem statement and remediation for kind.
func (n *Notifier) Explain(kind identity.Kind) (problem, remedy string) {
	switch kind {
	case identity.KindEmptyCredential:
		return "The message did not contain a credential.", "Paste the full credential in this DM."
	case identity.KindTooShort:
		return fmt.Sprintf("That does not look like a complete credential (at least %d characters).", n.minLength),
			"Copy the whole credential and send it again."
	case identity.KindTimeout:
		return "The identity service did not respond in time.", "Please resubmit in a moment."
	case identity.KindUnauthorized:
		return "The credential is invalid or has expired.", "Generate a new credential and send it again."
	case identity.KindForbidden:
		return "The account behind this credential is restricted.", "Resolve the restriction on the account, then resubmit."
	case identity.KindRateLimited:
		return "The identity service is busy right now.", "Wait a minute and resubmit."
	case identity.KindMalformedResponse:
		return "The identity service returned an unexpected answer.", "Resubmit; contact staff if this keeps happening."
	case identity.KindStoreUnavailable:
		return "Your verification could not be saved.", "Please try again later."
	case identity.KindThrottled:
		return "Too many attempts in a short time.", "Wait a minute before sending another credential."
	default:
		return "The identity service returned an error.", "Please try again later."
	}
}

func (n *Notifier) dm(ctx context.Context, userID, kind string, content chat.Content) error {
	content.Footer = footer
	content.Timestamp = requestcontext.Now(ctx)
	if _, err := n.transport.Send(ctx, chat.ToUser(userID), content); err != nil {
		n.logger.WarnContext(ctx, "failed to deliver notification",
			"user_id", userID,
			"notification", kind,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return fmt.Errorf("send %s notification: %w", kind, err)
	}
	return nil
}

func auditContent(e audit.Event) chat.Content {
	title, color := "Audit", chat.ColorInfo
	switch e.Action {
	case audit.ActionVerified:
		title, color = "User Verified", chat.ColorSuccess
	case audit.ActionRelinked:
		title, color = "User Re-linked", chat.ColorInfo
	case audit.ActionExpired:
		title, color = "Credential Expired", chat.ColorError
	case audit.ActionRejected:
		title, color = "Verification Rejected", chat.ColorWarning
	case audit.ActionOnboarded:
		title, color = "Member Onboarded", chat.ColorInfo
	case audit.ActionRemoved:
		title, color = "Record Removed", chat.ColorWarning
	}

	fields := []chat.Field{
		{Name: "User", Value: "<@" + e.UserID + ">", Inline: true},
	}
	if e.DisplayName != "" {
		fields = append(fields, chat.Field{Name: "Username", Value: e.DisplayName, Inline: true})
	}
	if e.RemoteName != "" {
		fields = append(fields,
			chat.Field{Name: "Remote ID", Value: strconv.FormatInt(e.RemoteID, 10), Inline: true},
			chat.Field{Name: "Remote Username", Value: e.RemoteName, Inline: true},
		)
	}
	if e.PreviousRemoteName != "" {
		fields = append(fields, chat.Field{Name: "Previous Remote Username", Value: e.PreviousRemoteName, Inline: true})
	}
	if e.Reason != "" {
		fields = append(fields, chat.Field{Name: "Reason", Value: e.Reason})
	}
	if e.RequestID != "" {
		fields = append(fields, chat.Field{Name: "Request ID", Value: e.RequestID})
	}
	return chat.Content{
		Title:     title,
		Color:     color,
		Fields:    fields,
		Footer:    footer,
		Timestamp: e.Timestamp,
	}
}

func identityFields(id *identity.Identity) []chat.Field {
	if id == nil {
		return nil
	}
	fields := []chat.Field{
		{Name: "Remote ID", Value: strconv.FormatInt(id.ID, 10), Inline: true},
		{Name: "Remote Username", Value: id.Name, Inline: true},
	}
	if id.DisplayName != "" {
		fields = append(fields, chat.Field{Name: "Display Name", Value: id.DisplayName, Inline: true})
	}
	return fields
}

func check(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func enabled(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}
