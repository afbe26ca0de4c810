// Package discord adapts a discordgo session to the chat transport port and
// forwards the two inbound events the gateway cares about.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"verigate/internal/chat"
	"verigate/pkg/platform/sentinel"
)

// session is the subset of *discordgo.Session the transport uses.
type session interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Transport implements chat.Transport over the Discord REST API.
type Transport struct {
	session session
	selfID  func() string

	mu         sync.Mutex
	dmChannels map[string]string
}

// New wraps an open discordgo session.
func New(s *discordgo.Session) *Transport {
	return newTransport(s, func() string {
		if s.State == nil || s.State.User == nil {
			return ""
		}
		return s.State.User.ID
	})
}

func newTransport(s session, selfID func() string) *Transport {
	return &Transport{
		session:    s,
		selfID:     selfID,
		dmChannels: make(map[string]string),
	}
}

// Send posts content as an embed.
func (t *Transport) Send(ctx context.Context, dst chat.Destination, content chat.Content) (string, error) {
	channelID, err := t.resolve(ctx, dst)
	if err != nil {
		return "", err
	}
	msg, err := t.session.ChannelMessageSendEmbed(channelID, toEmbed(content), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send to %s: %w", dst, err)
	}
	return msg.ID, nil
}

// Edit replaces the embed of an existing message.
func (t *Transport) Edit(ctx context.Context, dst chat.Destination, messageID string, content chat.Content) error {
	channelID, err := t.resolve(ctx, dst)
	if err != nil {
		return err
	}
	if _, err := t.session.ChannelMessageEditEmbed(channelID, messageID, toEmbed(content), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit %s in %s: %w", messageID, dst, notFound(err))
	}
	return nil
}

// Delete removes a message.
func (t *Transport) Delete(ctx context.Context, dst chat.Destination, messageID string) error {
	channelID, err := t.resolve(ctx, dst)
	if err != nil {
		return err
	}
	if err := t.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete %s in %s: %w", messageID, dst, notFound(err))
	}
	return nil
}

// ListRecent fetches a single page of history; Discord returns it newest first.
func (t *Transport) ListRecent(ctx context.Context, channelID string, limit int) ([]chat.Message, error) {
	msgs, err := t.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list channel %s: %w", channelID, err)
	}
	self := t.selfID()
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, fromMessage(m, self))
	}
	return out, nil
}

// notFound tags a REST 404 (unknown message or channel) with sentinel.ErrNotFound.
func notFound(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	gone := restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMessage {
		gone = true
	}
	if !gone {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
}

func (t *Transport) resolve(ctx context.Context, dst chat.Destination) (string, error) {
	if !dst.Direct {
		return dst.ID, nil
	}

	t.mu.Lock()
	channelID, ok := t.dmChannels[dst.ID]
	t.mu.Unlock()
	if ok {
		return channelID, nil
	}

	ch, err := t.session.UserChannelCreate(dst.ID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("open dm with %s: %w", dst.ID, err)
	}

	t.mu.Lock()
	t.dmChannels[dst.ID] = ch.ID
	t.mu.Unlock()
	return ch.ID, nil
}

func toEmbed(c chat.Content) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       c.Title,
		Description: c.Description,
		Color:       c.Color,
	}
	for _, f := range c.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if c.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: c.Footer}
	}
	if !c.Timestamp.IsZero() {
		embed.Timestamp = c.Timestamp.UTC().Format(time.RFC3339)
	}
	return embed
}

func fromMessage(m *discordgo.Message, selfID string) chat.Message {
	msg := chat.Message{
		ID:           m.ID,
		ChannelID:    m.ChannelID,
		AuthorIsSelf: m.Author != nil && selfID != "" && m.Author.ID == selfID,
	}
	if len(m.Embeds) == 0 || m.Embeds[0] == nil {
		return msg
	}
	embed := m.Embeds[0]
	msg.Content = chat.Content{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	for _, f := range embed.Fields {
		if f == nil {
			continue
		}
		msg.Content.Fields = append(msg.Content.Fields, chat.Field{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if embed.Footer != nil {
		msg.Content.Footer = embed.Footer.Text
	}
	if ts, err := time.Parse(time.RFC3339, embed.Timestamp); err == nil {
		msg.Content.Timestamp = ts
	}
	return msg
}

// Listen registers event handlers that forward member joins and DMs to sink.
// ctx is the parent of every forwarded event.
func Listen(ctx context.Context, s *discordgo.Session, guildID string, sink chat.EventSink, logger *slog.Logger) {
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
		if e.Member == nil || e.User == nil || e.User.Bot {
			return
		}
		if guildID != "" && e.GuildID != guildID {
			return
		}
		sink.MemberJoined(ctx, chat.Member{UserID: e.User.ID, DisplayName: displayName(e.User)})
	})

	s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageCreate) {
		if dm, ok := toDirectMessage(e.Message); ok {
			sink.DirectMessageReceived(ctx, dm)
		}
	})

	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.InfoContext(ctx, "discord session ready", "user", r.User.Username, "guilds", len(r.Guilds))
	})
}

// Intents returns the gateway intents the listener relies on.
func Intents() discordgo.Intent {
	return discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent
}

func toDirectMessage(m *discordgo.Message) (chat.DirectMessage, bool) {
	// Only DMs from humans: guild messages carry a GuildID.
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID != "" {
		return chat.DirectMessage{}, false
	}
	return chat.DirectMessage{
		UserID:      m.Author.ID,
		DisplayName: displayName(m.Author),
		Text:        m.Content,
	}, true
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
