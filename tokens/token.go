// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package tokens

import (
	"context"
	"errors"
	"time"
)

// Token is an opaque bearer credential issued to a user. Tokens are never
// mutated once persisted.
type Token struct {
	ID        string
	Token     string
	UserID    string
	Scopes    []string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewToken carries the caller-computed fields of a token that is about to be
// persisted. Storage assigns ID and CreatedAt.
type NewToken struct {
	Token     string
	UserID    string
	Scopes    []string
	ExpiresAt time.Time
}

// Store persists and queries tokens.
type Store interface {
	// Insert persists t and returns the stored record. A token value that
	// already exists must be reported by wrapping ErrDuplicateToken.
	Insert(ctx context.Context, t NewToken) (Token, error)

	// ListActive returns the tokens of userID whose ExpiresAt is strictly
	// after now, most recently created first.
	ListActive(ctx context.Context, userID string, now time.Time) ([]Token, error)
}

var (
	// ErrDuplicateToken is wrapped by stores when a uniqueness constraint
	// on the token value rejects an insert.
	ErrDuplicateToken = errors.New("duplicate token value")

	// ErrNoRow is wrapped by stores when an insert reports success but
	// yields no record.
	ErrNoRow = errors.New("insert returned no row")
)
