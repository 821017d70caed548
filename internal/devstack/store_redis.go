// SPDX-License-Identifier: MIT

package devstack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix = "rg:sess:"
	redisAccessPrefix  = "rg:tok:"
	redisRefreshPrefix = "rg:ref:"
	redisProfilePrefix = "rg:prof:"
)

// RedisStore keeps the dev fixtures in Redis, for stacks where several
// developers share one seeded state.
type RedisStore struct {
	client *redis.Client
}

func OpenRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) PutSession(ctx context.Context, rec SessionRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	id := rec.UserID.String()

	// Rotation: drop the index entries of the replaced tokens. Not atomic,
	// which is fine for a dev fixture store.
	if old, err := s.sessionByKey(ctx, redisSessionPrefix+id); err == nil {
		if old.AccessToken != rec.AccessToken {
			_ = s.client.Del(ctx, redisAccessPrefix+old.AccessToken).Err()
		}
		if old.RefreshToken != rec.RefreshToken {
			_ = s.client.Del(ctx, redisRefreshPrefix+old.RefreshToken).Err()
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisSessionPrefix+id, buf, 0)
	pipe.Set(ctx, redisAccessPrefix+rec.AccessToken, id, 0)
	pipe.Set(ctx, redisRefreshPrefix+rec.RefreshToken, id, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) SessionByAccessToken(ctx context.Context, token string) (SessionRecord, error) {
	return s.sessionByIndex(ctx, redisAccessPrefix+token)
}

func (s *RedisStore) SessionByRefreshToken(ctx context.Context, token string) (SessionRecord, error) {
	return s.sessionByIndex(ctx, redisRefreshPrefix+token)
}

func (s *RedisStore) sessionByIndex(ctx context.Context, indexKey string) (SessionRecord, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return SessionRecord{}, ErrNotFound
		}
		return SessionRecord{}, err
	}
	return s.sessionByKey(ctx, redisSessionPrefix+id)
}

func (s *RedisStore) sessionByKey(ctx context.Context, key string) (SessionRecord, error) {
	buf, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return SessionRecord{}, ErrNotFound
		}
		return SessionRecord{}, err
	}
	var rec SessionRecord
	if err := json.Unmarshal(buf, &rec); err != nil {
		return SessionRecord{}, err
	}
	return rec, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, userID string) error {
	rec, err := s.sessionByKey(ctx, redisSessionPrefix+userID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisAccessPrefix+rec.AccessToken)
	pipe.Del(ctx, redisRefreshPrefix+rec.RefreshToken)
	pipe.Del(ctx, redisSessionPrefix+userID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) PutProfile(ctx context.Context, rec ProfileRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisProfilePrefix+rec.UserID.String(), buf, 0).Err()
}

func (s *RedisStore) ProfileByUser(ctx context.Context, userID string) (ProfileRecord, error) {
	buf, err := s.client.Get(ctx, redisProfilePrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ProfileRecord{}, ErrNotFound
		}
		return ProfileRecord{}, err
	}
	var rec ProfileRecord
	if err := json.Unmarshal(buf, &rec); err != nil {
		return ProfileRecord{}, err
	}
	return rec, nil
}

var _ Store = (*RedisStore)(nil)
