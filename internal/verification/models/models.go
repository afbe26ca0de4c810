package models

import (
	"time"

	"verigate/internal/identity"
)

// State is a user's position in the verification lifecycle.
type State string

const (
	StateUnknown            State = "unknown"
	StateAwaitingSubmission State = "awaiting_submission"
	StatePendingValidation  State = "pending_validation"
	StateVerified           State = "verified"
	StateRejected           State = "rejected"
)

// UserRecord is the persisted verification state of one chat user.
//
// Invariant: Verified implies Credential != "" and LastValidatedAt is set.
type UserRecord struct {
	UserID      string
	DisplayName string

	// Credential is the normalized secret; empty means known but unverified.
	Credential string

	RemoteID          int64
	RemoteName        string
	RemoteDisplayName string

	Verified        bool
	LastValidatedAt time.Time
	NotifiedAt      time.Time
	UpdatedAt       time.Time
}

// HasCredential reports whether a secret is stored for the user.
func (r *UserRecord) HasCredential() bool {
	return r != nil && r.Credential != ""
}

// Empty reports whether the record carries nothing worth persisting.
func (r *UserRecord) Empty() bool {
	return r.Credential == "" && r.NotifiedAt.IsZero()
}

// Stale reports whether the last validation is older than maxAge at now.
func (r *UserRecord) Stale(now time.Time, maxAge time.Duration) bool {
	if r.LastValidatedAt.IsZero() {
		return true
	}
	return now.Sub(r.LastValidatedAt) > maxAge
}

// State derives the lifecycle state from the record. A nil record is Unknown.
func (r *UserRecord) State() State {
	switch {
	case r == nil:
		return StateUnknown
	case r.Verified && r.Credential != "":
		return StateVerified
	case r.Credential != "":
		return StatePendingValidation
	case !r.LastValidatedAt.IsZero():
		// Had a credential once and lost it to eviction.
		return StateRejected
	case !r.NotifiedAt.IsZero():
		return StateAwaitingSubmission
	default:
		return StateUnknown
	}
}

// Identity returns the remote identity recorded on the last successful validation.
func (r *UserRecord) Identity() *identity.Identity {
	if r == nil || r.RemoteName == "" {
		return nil
	}
	return &identity.Identity{
		ID:          r.RemoteID,
		Name:        r.RemoteName,
		DisplayName: r.RemoteDisplayName,
	}
}

// ApplyIdentity overwrites the remote identity fields. Re-linking to a
// different remote account replaces the previous one.
func (r *UserRecord) ApplyIdentity(id *identity.Identity) {
	r.RemoteID = id.ID
	r.RemoteName = id.Name
	r.RemoteDisplayName = id.DisplayName
}

// Evict clears the credential and verified flag but keeps the record as a
// tombstone so the user is not re-prompted on join. The expiry notice counts
// as a notification, which keeps the tombstone non-empty.
func (r *UserRecord) Evict(now time.Time) {
	r.Credential = ""
	r.Verified = false
	if r.NotifiedAt.IsZero() {
		r.NotifiedAt = now
	}
}

// Reason explains a denied gate check.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonNotVerified            Reason = "not_verified"
	ReasonExpired                Reason = "expired"
	ReasonTemporarilyUnavailable Reason = "temporarily_unavailable"
)

// GateDecision is the answer to "may this user perform a gated action?".
type GateDecision struct {
	Allowed     bool
	Identity    *identity.Identity
	Reason      Reason
	Revalidated bool
	ValidatedAt time.Time
	FailureKind identity.Kind
}

// Submission is an inbound credential from a user.
type Submission struct {
	UserID      string
	DisplayName string
	Credential  string
}

// Outcome is the result of a submission.
type Outcome struct {
	Accepted bool
	Identity *identity.Identity
	Kind     identity.Kind
	Relinked bool
}

// Member is a user joining the guild.
type Member struct {
	UserID      string
	DisplayName string
}

// StatusReport summarizes a user's verification state for display.
type StatusReport struct {
	UserID           string
	State            State
	Verified         bool
	CredentialStored bool
	GatedAccess      bool
	Identity         *identity.Identity
	LastValidatedAt  time.Time
}
