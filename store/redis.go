// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VA7DBI/tokenAPI/config"
	"github.com/VA7DBI/tokenAPI/tokens"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisTokenStore implements tokens.Store for Redis.
//
// Each token lives under <prefix>token:<value> with no TTL, so a value stays
// taken after its token expires; SET NX on that key enforces uniqueness. A
// sorted set per user, <prefix>user:<userId>, indexes token values by
// creation time. Expired tokens are filtered out on read.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

type redisRecord struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewRedisTokenStore(ctx context.Context, cfg *config.Config) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisTokenStore{
		client: client,
		prefix: cfg.Storage.Redis.KeyPrefix,
		now:    time.Now,
	}, nil
}

func (s *RedisTokenStore) Name() string { return config.BackendRedis }

func (s *RedisTokenStore) tokenKey(value string) string { return s.prefix + "token:" + value }

func (s *RedisTokenStore) userKey(userID string) string { return s.prefix + "user:" + userID }

func (s *RedisTokenStore) Insert(ctx context.Context, t tokens.NewToken) (_ tokens.Token, err error) {
	defer func(start time.Time) { observe(s.Name(), "insert", start, err) }(time.Now())

	now := s.now().UTC()
	rec := redisRecord{
		ID:        uuid.NewString(),
		Token:     t.Token,
		UserID:    t.UserID,
		Scopes:    append([]string(nil), t.Scopes...),
		CreatedAt: now,
		ExpiresAt: t.ExpiresAt.UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return tokens.Token{}, fmt.Errorf("encoding token: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.tokenKey(rec.Token), data, 0).Result()
	if err != nil {
		return tokens.Token{}, err
	}
	if !ok {
		return tokens.Token{}, fmt.Errorf("%w: %s", tokens.ErrDuplicateToken, s.tokenKey(rec.Token))
	}

	err = s.client.ZAdd(ctx, s.userKey(rec.UserID), redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: rec.Token,
	}).Err()
	if err != nil {
		if delErr := s.client.Del(ctx, s.tokenKey(rec.Token)).Err(); delErr != nil {
			return tokens.Token{}, errors.Join(err, fmt.Errorf("rolling back %s: %w", s.tokenKey(rec.Token), delErr))
		}
		return tokens.Token{}, err
	}

	return rec.token(), nil
}

func (s *RedisTokenStore) ListActive(ctx context.Context, userID string, now time.Time) (_ []tokens.Token, err error) {
	defer func(start time.Time) { observe(s.Name(), "list", start, err) }(time.Now())

	values, err := s.client.ZRevRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	list := []tokens.Token{}
	if len(values) == 0 {
		return list, nil
	}

	keys := make([]string, len(values))
	for i, v := range values {
		keys[i] = s.tokenKey(v)
	}
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, r := range raw {
		data, ok := r.(string)
		if !ok {
			continue
		}
		var rec redisRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding token %s: %w", keys[i], err)
		}
		if rec.ExpiresAt.After(now) {
			list = append(list, rec.token())
		}
	}
	return list, nil
}

func (s *RedisTokenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

func (r redisRecord) token() tokens.Token {
	return tokens.Token{
		ID:        r.ID,
		Token:     r.Token,
		UserID:    r.UserID,
		Scopes:    r.Scopes,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}
