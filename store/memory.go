// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package store

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/VA7DBI/tokenAPI/config"
	"github.com/VA7DBI/tokenAPI/tokens"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// MemoryTokenStore keeps tokens in process memory, keyed by token value.
// Intended for development and tests; nothing survives a restart.
type MemoryTokenStore struct {
	cache *cache.Cache
	seq   atomic.Uint64
	now   func() time.Time
}

type memoryRecord struct {
	token tokens.Token
	seq   uint64
}

// NewMemoryTokenStore returns an empty store. Records never expire from the
// cache, so a token value stays taken after the token itself has expired.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		cache: cache.New(cache.NoExpiration, 0),
		now:   time.Now,
	}
}

func (s *MemoryTokenStore) Name() string { return config.BackendMemory }

func (s *MemoryTokenStore) Insert(ctx context.Context, t tokens.NewToken) (tokens.Token, error) {
	if err := ctx.Err(); err != nil {
		return tokens.Token{}, err
	}

	now := s.now().UTC()
	rec := memoryRecord{
		token: tokens.Token{
			ID:        uuid.NewString(),
			Token:     t.Token,
			UserID:    t.UserID,
			Scopes:    append([]string(nil), t.Scopes...),
			CreatedAt: now,
			ExpiresAt: t.ExpiresAt.UTC(),
		},
		seq: s.seq.Add(1),
	}

	if err := s.cache.Add(t.Token, rec, cache.NoExpiration); err != nil {
		return tokens.Token{}, fmt.Errorf("%w: %v", tokens.ErrDuplicateToken, err)
	}
	return rec.token, nil
}

func (s *MemoryTokenStore) ListActive(ctx context.Context, userID string, now time.Time) ([]tokens.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var recs []memoryRecord
	for _, item := range s.cache.Items() {
		rec, ok := item.Object.(memoryRecord)
		if !ok || rec.token.UserID != userID || !rec.token.ExpiresAt.After(now) {
			continue
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].token.CreatedAt.Equal(recs[j].token.CreatedAt) {
			return recs[i].token.CreatedAt.After(recs[j].token.CreatedAt)
		}
		return recs[i].seq > recs[j].seq
	})

	list := make([]tokens.Token, len(recs))
	for i, rec := range recs {
		list[i] = rec.token
		list[i].Scopes = append([]string(nil), rec.token.Scopes...)
	}
	return list, nil
}

func (s *MemoryTokenStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryTokenStore) Close() error {
	s.cache.Flush()
	return nil
}
