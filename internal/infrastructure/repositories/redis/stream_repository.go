package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisStreamRepository stores each live stream under its own key with a TTL
// and indexes room ids in a sorted set scored by start time. Index members
// whose key has expired are pruned on listing.
type RedisStreamRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStreamRepository(client *redis.Client, ttl time.Duration) ports.StreamRepository {
	return &RedisStreamRepository{
		client: client,
		prefix: "rillcast:stream:",
		ttl:    ttl,
	}
}

func (r *RedisStreamRepository) streamKey(id domain.RoomID) string {
	return r.prefix + string(id)
}

func (r *RedisStreamRepository) liveKey() string {
	return r.prefix + "live"
}

func (r *RedisStreamRepository) Save(ctx context.Context, stream *domain.LiveStream) error {
	data, err := json.Marshal(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal stream: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.streamKey(stream.RoomID), data, r.ttl)
	pipe.ZAdd(ctx, r.liveKey(), redis.Z{
		Score:  float64(stream.StartedAt.UnixMilli()),
		Member: string(stream.RoomID),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save stream in Redis: %w", err)
	}
	return nil
}

func (r *RedisStreamRepository) GetByRoom(ctx context.Context, roomID domain.RoomID) (*domain.LiveStream, error) {
	data, err := r.client.Get(ctx, r.streamKey(roomID)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream from Redis: %w", err)
	}

	var stream domain.LiveStream
	if err := json.Unmarshal(data, &stream); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream: %w", err)
	}
	return &stream, nil
}

func (r *RedisStreamRepository) Delete(ctx context.Context, roomID domain.RoomID) error {
	pipe := r.client.TxPipeline()
	pipe.ZRem(ctx, r.liveKey(), string(roomID))
	pipe.Del(ctx, r.streamKey(roomID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete stream from Redis: %w", err)
	}
	return nil
}

func (r *RedisStreamRepository) ListLive(ctx context.Context) ([]*domain.LiveStream, error) {
	ids, err := r.client.ZRevRange(ctx, r.liveKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list live streams: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.LiveStream{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.streamKey(domain.RoomID(id))
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load live streams: %w", err)
	}

	streams := make([]*domain.LiveStream, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var s domain.LiveStream
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			stale = append(stale, ids[i])
			continue
		}
		streams = append(streams, &s)
	}

	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, r.liveKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune expired streams: %w", err)
		}
	}
	return streams, nil
}
