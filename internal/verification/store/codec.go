package store

import (
	"strconv"
	"time"

	"verigate/internal/chat"
	"verigate/internal/verification/models"
)

// Field names of a persisted record. The first seven are the public layout;
// the rest carry what a restart needs to rebuild the cache.
const (
	FieldUserID            = "User ID"
	FieldUsername          = "Username"
	FieldRemoteID          = "Remote ID"
	FieldRemoteUsername    = "Remote Username"
	FieldCredential        = "Credential"
	FieldVerified          = "Verified"
	FieldLastUpdated       = "Last Updated"
	FieldRemoteDisplayName = "Remote Display Name"
	FieldSecret            = "Secret"
	FieldLastValidated     = "Last Validated"
	FieldNotifiedAt        = "Notified At"
)

const (
	recordTitle  = "User Record"
	recordFooter = "verigate record store"

	valueNone   = "None"
	valueNever  = "Never"
	valueStored = "[STORED]"
	valueYes    = "Yes"
	valueNo     = "No"
)

// Encode serializes a record into message content. Chat platforms reject empty
// field values, so absent values are written as placeholders.
func Encode(rec models.UserRecord) chat.Content {
	color := chat.ColorWarning
	if rec.Verified {
		color = chat.ColorSuccess
	}

	remoteID := valueNone
	if rec.RemoteName != "" {
		remoteID = strconv.FormatInt(rec.RemoteID, 10)
	}
	credential := valueNone
	if rec.Credential != "" {
		credential = valueStored
	}

	return chat.Content{
		Title:     recordTitle,
		Color:     color,
		Footer:    recordFooter,
		Timestamp: rec.UpdatedAt,
		Fields: []chat.Field{
			{Name: FieldUserID, Value: rec.UserID, Inline: true},
			{Name: FieldUsername, Value: orNone(rec.DisplayName), Inline: true},
			{Name: FieldRemoteID, Value: remoteID, Inline: true},
			{Name: FieldRemoteUsername, Value: orNone(rec.RemoteName), Inline: true},
			{Name: FieldCredential, Value: credential, Inline: true},
			{Name: FieldVerified, Value: yesNo(rec.Verified), Inline: true},
			{Name: FieldLastUpdated, Value: formatTime(rec.UpdatedAt)},
			{Name: FieldRemoteDisplayName, Value: orNone(rec.RemoteDisplayName), Inline: true},
			{Name: FieldSecret, Value: orNone(rec.Credential)},
			{Name: FieldLastValidated, Value: formatTime(rec.LastValidatedAt), Inline: true},
			{Name: FieldNotifiedAt, Value: formatTime(rec.NotifiedAt), Inline: true},
		},
	}
}

// Decode parses message content back into a record. ok is false when the
// content is not a record.
func Decode(c chat.Content) (rec models.UserRecord, ok bool) {
	userID, found := c.FieldValue(FieldUserID)
	if !found || userID == "" {
		return models.UserRecord{}, false
	}

	rec.UserID = userID
	rec.DisplayName = field(c, FieldUsername)
	rec.RemoteName = field(c, FieldRemoteUsername)
	rec.RemoteDisplayName = field(c, FieldRemoteDisplayName)
	if rec.RemoteName != "" {
		rec.RemoteID, _ = strconv.ParseInt(field(c, FieldRemoteID), 10, 64)
	}
	rec.Credential = field(c, FieldSecret)
	rec.LastValidatedAt = parseTime(field(c, FieldLastValidated))
	rec.NotifiedAt = parseTime(field(c, FieldNotifiedAt))
	rec.UpdatedAt = parseTime(field(c, FieldLastUpdated))

	// Re-derive rather than trust the flag so a hand-edited message cannot
	// break the verified invariant.
	verified, _ := c.FieldValue(FieldVerified)
	rec.Verified = verified == valueYes && rec.Credential != "" && !rec.LastValidatedAt.IsZero()
	return rec, true
}

// field returns the value of name with placeholders mapped to "".
func field(c chat.Content, name string) string {
	v, _ := c.FieldValue(name)
	if v == valueNone || v == valueNever {
		return ""
	}
	return v
}

func orNone(s string) string {
	if s == "" {
		return valueNone
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return valueYes
	}
	return valueNo
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return valueNever
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
