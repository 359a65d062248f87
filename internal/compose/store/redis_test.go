package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"lanegate/internal/compose/models"
	id "lanegate/pkg/domain"
)

type RedisStoreSuite struct {
	suite.Suite

	ctx   context.Context
	store *RedisStore
	key   models.Key
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupTest() {
	s.ctx = context.Background()

	mr := miniredis.RunT(s.T())
	s.store = NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	s.key = models.Key{
		From:  "sender",
		To:    "receiver",
		GUID:  id.ComputeGUID(1, 1, "sender", 2, "receiver"),
		Index: 0,
	}
}

func (s *RedisStoreSuite) TestEnqueueOnce() {
	hash := id.HashPayload([]byte("payload"))
	s.Require().NoError(s.store.Enqueue(s.ctx, s.key, hash))

	got, err := s.store.Hash(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(hash, got)

	err = s.store.Enqueue(s.ctx, s.key, id.HashPayload([]byte("other")))
	s.Require().ErrorIs(err, models.ErrComposeExists)
}

func (s *RedisStoreSuite) TestAbsentSlotReadsEmpty() {
	got, err := s.store.Hash(s.ctx, s.key)
	s.Require().NoError(err)
	s.True(got.IsEmpty())
}

func (s *RedisStoreSuite) TestMarkDeliveredCompareAndSet() {
	hash := id.HashPayload([]byte("payload"))
	s.Require().NoError(s.store.Enqueue(s.ctx, s.key, hash))

	s.Run("mismatch leaves slot pending", func() {
		err := s.store.MarkDelivered(s.ctx, s.key, id.HashPayload([]byte("tampered")))
		s.Require().ErrorIs(err, models.ErrComposeNotFound)

		got, err := s.store.Hash(s.ctx, s.key)
		s.Require().NoError(err)
		s.Equal(hash, got)
	})

	s.Run("matching hash consumes the slot once", func() {
		s.Require().NoError(s.store.MarkDelivered(s.ctx, s.key, hash))

		got, err := s.store.Hash(s.ctx, s.key)
		s.Require().NoError(err)
		s.Equal(models.DeliveredSentinel, got)

		err = s.store.MarkDelivered(s.ctx, s.key, hash)
		s.Require().ErrorIs(err, models.ErrComposeNotFound)
	})

	s.Run("absent slot", func() {
		other := s.key
		other.Index = 9
		err := s.store.MarkDelivered(s.ctx, other, hash)
		s.Require().ErrorIs(err, models.ErrComposeNotFound)
	})
}

func (s *RedisStoreSuite) TestIndexesAreIndependent() {
	a := id.HashPayload([]byte("first"))
	b := id.HashPayload([]byte("second"))

	s.Require().NoError(s.store.Enqueue(s.ctx, s.key, a))
	second := s.key
	second.Index = 1
	s.Require().NoError(s.store.Enqueue(s.ctx, second, b))

	s.Require().NoError(s.store.MarkDelivered(s.ctx, s.key, a))

	got, err := s.store.Hash(s.ctx, second)
	s.Require().NoError(err)
	s.Equal(b, got)
}
