package audit

import "time"

// Action names what happened to a user's verification state.
type Action string

const (
	ActionVerified  Action = "verified"
	ActionRelinked  Action = "relinked"
	ActionRejected  Action = "rejected"
	ActionExpired   Action = "expired"
	ActionOnboarded Action = "onboarded"
	ActionRemoved   Action = "removed"
)

// Event is emitted from the verification service to capture key actions. Keep
// it transport-agnostic so sinks can fan out. It never carries the secret;
// CredentialFingerprint is a one-way digest for correlation.
type Event struct {
	Action                Action    `json:"action"`
	Timestamp             time.Time `json:"timestamp"`
	UserID                string    `json:"user_id"`
	DisplayName           string    `json:"display_name,omitempty"`
	RemoteID              int64     `json:"remote_id,omitempty"`
	RemoteName            string    `json:"remote_name,omitempty"`
	PreviousRemoteName    string    `json:"previous_remote_name,omitempty"`
	Reason                string    `json:"reason,omitempty"`
	CredentialFingerprint string    `json:"credential_fingerprint,omitempty"`
	RequestID             string    `json:"request_id,omitempty"`
}
