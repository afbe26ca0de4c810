// Package redis emulates a chat channel on Redis for headless deployments.
//
// Each channel is a sorted set of message ids (scored by a global sequence)
// plus one key per message holding its content. Listing is newest first and
// bounded exactly like a chat platform page, so the record store keeps its
// bounded-window semantics regardless of backend.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"verigate/internal/chat"
	"verigate/pkg/platform/sentinel"
)

// maxPage mirrors the chat platform page size.
const maxPage = 100

type envelope struct {
	Self    bool         `json:"self"`
	Content chat.Content `json:"content"`
}

// Transport implements chat.Transport on a Redis client.
type Transport struct {
	client redis.UniversalClient
	prefix string
}

// New creates a transport namespaced under prefix.
func New(client redis.UniversalClient, prefix string) *Transport {
	if prefix == "" {
		prefix = "verigate"
	}
	return &Transport{client: client, prefix: prefix}
}

func (t *Transport) logKey(channel string) string {
	return t.prefix + ":chan:" + channel + ":log"
}

func (t *Transport) msgKey(channel, id string) string {
	return t.prefix + ":chan:" + channel + ":msg:" + id
}

// Send appends a message to the channel log.
func (t *Transport) Send(ctx context.Context, dst chat.Destination, content chat.Content) (string, error) {
	payload, err := json.Marshal(envelope{Self: true, Content: content})
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}

	seq, err := t.client.Incr(ctx, t.prefix+":seq").Result()
	if err != nil {
		return "", fmt.Errorf("allocate message id: %w", err)
	}
	id := strconv.FormatInt(seq, 10)
	channel := channelKey(dst)

	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, t.msgKey(channel, id), payload, 0)
		pipe.ZAdd(ctx, t.logKey(channel), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return id, nil
}

// Edit overwrites an existing message; missing messages are not recreated.
func (t *Transport) Edit(ctx context.Context, dst chat.Destination, messageID string, content chat.Content) error {
	payload, err := json.Marshal(envelope{Self: true, Content: content})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	ok, err := t.client.SetXX(ctx, t.msgKey(channelKey(dst), messageID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("edit message %s: %w", messageID, err)
	}
	if !ok {
		return fmt.Errorf("edit message %s: %w", messageID, sentinel.ErrNotFound)
	}
	return nil
}

// Delete removes a message and its log entry.
func (t *Transport) Delete(ctx context.Context, dst chat.Destination, messageID string) error {
	channel := channelKey(dst)
	var del *redis.IntCmd
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, t.msgKey(channel, messageID))
		pipe.ZRem(ctx, t.logKey(channel), messageID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("delete message %s: %w", messageID, sentinel.ErrNotFound)
	}
	return nil
}

// ListRecent returns up to limit messages, newest first.
func (t *Transport) ListRecent(ctx context.Context, channelID string, limit int) ([]chat.Message, error) {
	if limit <= 0 || limit > maxPage {
		limit = maxPage
	}
	ids, err := t.client.ZRevRange(ctx, t.logKey(channelID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list channel %s: %w", channelID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = t.msgKey(channelID, id)
	}
	values, err := t.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load channel %s: %w", channelID, err)
	}

	out := make([]chat.Message, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Log entry without a body: deleted between the two reads.
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			continue
		}
		out = append(out, chat.Message{
			ID:           ids[i],
			ChannelID:    channelID,
			AuthorIsSelf: env.Self,
			Content:      env.Content,
		})
	}
	return out, nil
}

func channelKey(dst chat.Destination) string {
	if dst.Direct {
		return "dm:" + dst.ID
	}
	return dst.ID
}
