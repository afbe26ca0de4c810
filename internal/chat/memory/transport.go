// Package memory is an in-process chat transport. It backs dev mode and tests,
// and behaves like a real channel log: append-mostly, newest-first listing,
// and a bounded page size.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"verigate/internal/chat"
	"verigate/pkg/platform/sentinel"
)

// Operation names used for failure injection and call counting.
const (
	OpSend   = "send"
	OpEdit   = "edit"
	OpDelete = "delete"
	OpList   = "list"
)

// MaxPage mirrors the largest page a chat platform returns in one call.
const MaxPage = 100

type stored struct {
	id           string
	authorIsSelf bool
	content      chat.Content
}

// Transport keeps every channel as an ordered slice, oldest first.
type Transport struct {
	mu       sync.Mutex
	seq      int64
	channels map[string][]stored
	failures map[string]error
	calls    map[string]int
	latency  time.Duration
}

// Option configures a Transport.
type Option func(*Transport)

// WithLatency delays every call, widening race windows in concurrency tests.
func WithLatency(d time.Duration) Option {
	return func(t *Transport) {
		t.latency = d
	}
}

// New creates an empty transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		channels: make(map[string][]stored),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetFailure makes every call of op fail with err until cleared with a nil err.
func (t *Transport) SetFailure(op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.failures, op)
		return
	}
	t.failures[op] = err
}

// Calls reports how many times op was invoked.
func (t *Transport) Calls(op string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[op]
}

// InjectForeign appends a message authored by someone else.
func (t *Transport) InjectForeign(channelID string, content chat.Content) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(channelID, content, false)
}

// Messages returns a copy of a channel, oldest first.
func (t *Transport) Messages(dst chat.Destination) []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := channelKey(dst)
	out := make([]chat.Message, 0, len(t.channels[key]))
	for _, m := range t.channels[key] {
		out = append(out, chat.Message{ID: m.id, ChannelID: key, AuthorIsSelf: m.authorIsSelf, Content: m.content})
	}
	return out
}

// Send appends a self-authored message.
func (t *Transport) Send(ctx context.Context, dst chat.Destination, content chat.Content) (string, error) {
	if err := t.begin(ctx, OpSend); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(channelKey(dst), content, true), nil
}

// Edit replaces the content of a self-authored message.
func (t *Transport) Edit(ctx context.Context, dst chat.Destination, messageID string, content chat.Content) error {
	if err := t.begin(ctx, OpEdit); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	msgs := t.channels[channelKey(dst)]
	for i := range msgs {
		if msgs[i].id != messageID {
			continue
		}
		if !msgs[i].authorIsSelf {
			return fmt.Errorf("edit message %s: %w", messageID, sentinel.ErrUnauthorized)
		}
		msgs[i].content = content
		return nil
	}
	return fmt.Errorf("edit message %s: %w", messageID, sentinel.ErrNotFound)
}

// Delete removes a message.
func (t *Transport) Delete(ctx context.Context, dst chat.Destination, messageID string) error {
	if err := t.begin(ctx, OpDelete); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := channelKey(dst)
	msgs := t.channels[key]
	for i := range msgs {
		if msgs[i].id == messageID {
			t.channels[key] = append(msgs[:i:i], msgs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete message %s: %w", messageID, sentinel.ErrNotFound)
}

// ListRecent returns up to limit messages, newest first.
func (t *Transport) ListRecent(ctx context.Context, channelID string, limit int) ([]chat.Message, error) {
	if err := t.begin(ctx, OpList); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxPage {
		limit = MaxPage
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	msgs := t.channels[channelID]
	out := make([]chat.Message, 0, min(limit, len(msgs)))
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		m := msgs[i]
		out = append(out, chat.Message{ID: m.id, ChannelID: channelID, AuthorIsSelf: m.authorIsSelf, Content: m.content})
	}
	return out, nil
}

func (t *Transport) begin(ctx context.Context, op string) error {
	if t.latency > 0 {
		select {
		case <-time.After(t.latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[op]++
	if err := t.failures[op]; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return ctx.Err()
}

// appendLocked must be called while holding t.mu.
func (t *Transport) appendLocked(key string, content chat.Content, self bool) string {
	t.seq++
	id := strconv.FormatInt(t.seq, 10)
	t.channels[key] = append(t.channels[key], stored{id: id, authorIsSelf: self, content: content})
	return id
}

func channelKey(dst chat.Destination) string {
	if dst.Direct {
		return "dm:" + dst.ID
	}
	return dst.ID
}
