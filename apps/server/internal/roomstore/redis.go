package roomstore

import (
	"context"
	"strconv"
	"time"

	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"
)

const (
	roomIndexKey  = "holdem:rooms"
	roomKeyPrefix = "holdem:room:"
)

// RedisStore keeps each snapshot under its own key and indexes rooms in a
// sorted set scored by save time in milliseconds.
type RedisStore struct {
	rdb   *redis.Client
	clock quartz.Clock
}

func NewRedisStore(rdb *redis.Client, clock quartz.Clock) *RedisStore {
	return &RedisStore{rdb: rdb, clock: clock}
}

func buildRoomKey(roomID string) string {
	return roomKeyPrefix + roomID
}

func msScore(t time.Time) string {
	return strconv.FormatInt(t.UTC().UnixMilli(), 10)
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) Save(ctx context.Context, roomID string, state []byte) error {
	now := s.clock.Now().UTC()
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, buildRoomKey(roomID), state, 0)
		pipe.ZAdd(ctx, roomIndexKey, redis.Z{
			Score:  float64(now.UnixMilli()),
			Member: roomID,
		})
		return nil
	})
	return err
}

func (s *RedisStore) LoadSince(ctx context.Context, cutoff time.Time) ([]Record, error) {
	members, err := s.rdb.ZRangeByScoreWithScores(ctx, roomIndexKey, &redis.ZRangeBy{
		Min: "(" + msScore(cutoff),
		Max: "+inf",
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return []Record{}, nil
		}
		return nil, err
	}
	if len(members) == 0 {
		return []Record{}, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = buildRoomKey(m.Member.(string))
	}
	states, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(members))
	for i, m := range members {
		raw, ok := states[i].(string)
		if !ok {
			// 索引还在但快照已被删除
			continue
		}
		out = append(out, Record{
			RoomID:    m.Member.(string),
			State:     []byte(raw),
			UpdatedAt: time.UnixMilli(int64(m.Score)).UTC(),
		})
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, buildRoomKey(roomID))
		pipe.ZRem(ctx, roomIndexKey, roomID)
		return nil
	})
	return err
}

func (s *RedisStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	members, err := s.rdb.ZRangeByScore(ctx, roomIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + msScore(cutoff),
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}

	keys := make([]string, len(members))
	ids := make([]any, len(members))
	for i, m := range members {
		keys[i] = buildRoomKey(m)
		ids[i] = m
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, roomIndexKey, ids...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(members)), nil
}
