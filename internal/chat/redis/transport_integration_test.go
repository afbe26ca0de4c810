//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"verigate/internal/chat"
	chatredis "verigate/internal/chat/redis"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/testutil/containers"
)

type RedisTransportSuite struct {
	suite.Suite
	redis     *containers.RedisContainer
	transport *chatredis.Transport
}

func TestRedisTransportSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTransportSuite))
}

func (s *RedisTransportSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.transport = chatredis.New(s.redis.Client, "test")
}

func (s *RedisTransportSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisTransportSuite) TestSendListNewestFirst() {
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_, err := s.transport.Send(ctx, chat.ToChannel("db"), chat.Content{Title: title})
		s.Require().NoError(err)
	}

	msgs, err := s.transport.ListRecent(ctx, "db", 2)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal("c", msgs[0].Content.Title)
	s.Equal("b", msgs[1].Content.Title)
	s.True(msgs[0].AuthorIsSelf)
}

func (s *RedisTransportSuite) TestEditPreservesFields() {
	ctx := context.Background()
	id, err := s.transport.Send(ctx, chat.ToChannel("db"), chat.Content{Title: "v1"})
	s.Require().NoError(err)

	err = s.transport.Edit(ctx, chat.ToChannel("db"), id, chat.Content{
		Title:  "v2",
		Fields: []chat.Field{{Name: "User ID", Value: "U1", Inline: true}},
	})
	s.Require().NoError(err)

	msgs, err := s.transport.ListRecent(ctx, "db", 10)
	s.Require().NoError(err)
	s.Require().Len(msgs, 1)
	s.Equal(id, msgs[0].ID)
	value, ok := msgs[0].Content.FieldValue("User ID")
	s.True(ok)
	s.Equal("U1", value)
}

func (s *RedisTransportSuite) TestEditMissingMessage() {
	err := s.transport.Edit(context.Background(), chat.ToChannel("db"), "404", chat.Content{})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisTransportSuite) TestDelete() {
	ctx := context.Background()
	id, err := s.transport.Send(ctx, chat.ToChannel("db"), chat.Content{})
	s.Require().NoError(err)

	s.Require().NoError(s.transport.Delete(ctx, chat.ToChannel("db"), id))
	msgs, err := s.transport.ListRecent(ctx, "db", 10)
	s.Require().NoError(err)
	s.Empty(msgs)

	s.ErrorIs(s.transport.Delete(ctx, chat.ToChannel("db"), id), sentinel.ErrNotFound)
}
