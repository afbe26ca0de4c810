// Package chat defines the transport port the gateway needs from a chat platform.
//
// The verification core only sends, edits, deletes and lists structured
// messages. Everything else about the platform (gateway connections, slash
// commands, presence) stays inside the adapters under this package.
package chat

import (
	"context"
	"time"
)

// Colours used for structured content.
const (
	ColorInfo    = 0x0099ff
	ColorSuccess = 0x51cf66
	ColorWarning = 0xff9f43
	ColorError   = 0xff6b6b
)

// Field is one named value of a structured message.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Content is the structured body of a message (an embed on platforms that have them).
type Content struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Timestamp   time.Time
}

// FieldValue returns the value of the first field called name.
func (c Content) FieldValue(name string) (string, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Message is a stored message as returned by ListRecent.
type Message struct {
	ID           string
	ChannelID    string
	AuthorIsSelf bool
	Content      Content
}

// Destination addresses either a channel or a user's direct messages.
type Destination struct {
	ID     string
	Direct bool
}

// ToChannel addresses a channel by id.
func ToChannel(channelID string) Destination {
	return Destination{ID: channelID}
}

// ToUser addresses a user's direct-message channel.
func ToUser(userID string) Destination {
	return Destination{ID: userID, Direct: true}
}

func (d Destination) String() string {
	if d.Direct {
		return "user:" + d.ID
	}
	return "channel:" + d.ID
}

// Transport is what the record store and notifier need from the platform.
type Transport interface {
	Send(ctx context.Context, dst Destination, content Content) (string, error)
	Edit(ctx context.Context, dst Destination, messageID string, content Content) error
	Delete(ctx context.Context, dst Destination, messageID string) error
	// ListRecent returns at most limit messages of a channel, newest first.
	ListRecent(ctx context.Context, channelID string, limit int) ([]Message, error)
}

// Member is a user who joined the guild.
type Member struct {
	UserID      string
	DisplayName string
}

// DirectMessage is an inbound DM from a (non-bot) user.
type DirectMessage struct {
	UserID      string
	DisplayName string
	Text        string
}

// EventSink receives inbound platform events. Implementations must not block:
// each call is expected to start its own task.
type EventSink interface {
	MemberJoined(ctx context.Context, m Member)
	DirectMessageReceived(ctx context.Context, dm DirectMessage)
}
