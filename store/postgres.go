// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VA7DBI/tokenAPI/config"
	"github.com/VA7DBI/tokenAPI/tokens"
	"github.com/lib/pq"
)

const (
	insertTokenQuery = `INSERT INTO tokens (token, user_id, scopes, expires_at)
VALUES ($1, $2, $3::jsonb, $4)
RETURNING id, token, user_id, scopes, created_at, expires_at`

	listActiveTokensQuery = `SELECT id, token, user_id, scopes, created_at, expires_at
FROM tokens
WHERE user_id = $1 AND expires_at > $2
ORDER BY created_at DESC`
)

// PostgresTokenStore implements tokens.Store for PostgreSQL
type PostgresTokenStore struct {
	db *sql.DB
}

func NewPostgresTokenStore(ctx context.Context, cfg *config.Config) (*PostgresTokenStore, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return NewPostgresTokenStoreFromDB(db), nil
}

// NewPostgresTokenStoreFromDB wraps an already opened database handle.
func NewPostgresTokenStoreFromDB(db *sql.DB) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

func (s *PostgresTokenStore) Name() string { return config.BackendPostgres }

// DB exposes the handle for schema migrations.
func (s *PostgresTokenStore) DB() *sql.DB { return s.db }

func (s *PostgresTokenStore) Insert(ctx context.Context, t tokens.NewToken) (_ tokens.Token, err error) {
	defer func(start time.Time) { observe(s.Name(), "insert", start, err) }(time.Now())

	scopes, err := json.Marshal(t.Scopes)
	if err != nil {
		return tokens.Token{}, fmt.Errorf("encoding scopes: %w", err)
	}

	row := s.db.QueryRowContext(ctx, insertTokenQuery, t.Token, t.UserID, string(scopes), t.ExpiresAt)
	stored, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tokens.Token{}, tokens.ErrNoRow
	}
	if err != nil {
		return tokens.Token{}, translatePostgresError(err)
	}
	return stored, nil
}

func (s *PostgresTokenStore) ListActive(ctx context.Context, userID string, now time.Time) (_ []tokens.Token, err error) {
	defer func(start time.Time) { observe(s.Name(), "list", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, listActiveTokensQuery, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []tokens.Token{}
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (s *PostgresTokenStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresTokenStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(row scanner) (tokens.Token, error) {
	var (
		t      tokens.Token
		scopes []byte
	)
	if err := row.Scan(&t.ID, &t.Token, &t.UserID, &scopes, &t.CreatedAt, &t.ExpiresAt); err != nil {
		return tokens.Token{}, err
	}
	if err := json.Unmarshal(scopes, &t.Scopes); err != nil {
		return tokens.Token{}, fmt.Errorf("decoding scopes of token %s: %w", t.ID, err)
	}
	return t, nil
}

// translatePostgresError maps constraint violations reported by the server
// onto the storage sentinels of package tokens.
func translatePostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%w: %s", tokens.ErrDuplicateToken, pqErr.Constraint)
	}
	return err
}
