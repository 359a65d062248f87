package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lanegate/internal/compose/models"
	id "lanegate/pkg/domain"
	"lanegate/pkg/platform/sentinel"
)

// markDelivered transitions a slot to the delivered sentinel only when its
// current value matches, atomically on the server.
var markDelivered = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	redis.call('SET', KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// RedisStore implements ports.Store on redis so several coordinator replicas
// can share one compose queue.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps a connected client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Enqueue(ctx context.Context, key models.Key, hash id.PayloadHash) error {
	ok, err := s.client.SetNX(ctx, redisKey(key), hash.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("enqueue compose: %w: %v", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return models.ErrComposeExists
	}
	return nil
}

func (s *RedisStore) MarkDelivered(ctx context.Context, key models.Key, expected id.PayloadHash) error {
	res, err := markDelivered.Run(ctx, s.client,
		[]string{redisKey(key)},
		expected.String(), models.DeliveredSentinel.String(),
	).Int()
	if err != nil {
		return fmt.Errorf("mark compose delivered: %w: %v", sentinel.ErrUnavailable, err)
	}
	if res != 1 {
		return models.ErrComposeNotFound
	}
	return nil
}

func (s *RedisStore) Hash(ctx context.Context, key models.Key) (id.PayloadHash, error) {
	val, err := s.client.Get(ctx, redisKey(key)).Result()
	if err == redis.Nil {
		return id.EmptyPayloadHash, nil
	}
	if err != nil {
		return id.EmptyPayloadHash, fmt.Errorf("read compose slot: %w: %v", sentinel.ErrUnavailable, err)
	}
	return id.ParsePayloadHash(val)
}

func redisKey(key models.Key) string {
	return fmt.Sprintf("compose:%s:%s:%s:%d", key.From, key.To, key.GUID, key.Index)
}
