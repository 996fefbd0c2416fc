// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/VA7DBI/tokenAPI/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service issues tokens and lists a user's active tokens.
type Service struct {
	store  Store
	logger *zap.Logger

	now      func() time.Time
	newValue func() (string, error)
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		logger:   logger,
		now:      time.Now,
		newValue: randomValue,
	}
}

// randomValue returns a version 4 UUID drawn from crypto/rand.
func randomValue() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Create validates the request, generates a fresh token value and persists
// it. The returned Token holds the values as stored.
func (s *Service) Create(ctx context.Context, userID string, scopes []string, expiresInMinutes int) (Token, error) {
	if err := ValidateCreateRequest(userID, scopes, expiresInMinutes); err != nil {
		metrics.TokenOperations.WithLabelValues("create", InvalidArgument.String()).Inc()
		return Token{}, err
	}

	expiresAt := s.now().Add(time.Duration(expiresInMinutes) * time.Minute)

	value, err := s.newValue()
	if err != nil {
		s.logger.Error("token value generation failed", zap.Error(err))
		metrics.TokenOperations.WithLabelValues("create", Internal.String()).Inc()
		return Token{}, &Error{Kind: Internal, Message: "Failed to create token", Err: err}
	}

	t, err := s.store.Insert(ctx, NewToken{
		Token:     value,
		UserID:    userID,
		Scopes:    scopes,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		err = translateInsertError(err)
		kind := KindOf(err)
		if kind == Internal {
			s.logger.Error("token insert failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			s.logger.Warn("token insert rejected", zap.String("user_id", userID), zap.Stringer("kind", kind))
		}
		metrics.TokenOperations.WithLabelValues("create", kind.String()).Inc()
		return Token{}, err
	}

	s.logger.Info("token created",
		zap.String("id", t.ID),
		zap.String("user_id", t.UserID),
		zap.Int("scopes", len(t.Scopes)),
		zap.Time("expires_at", t.ExpiresAt),
	)
	metrics.TokenOperations.WithLabelValues("create", "ok").Inc()
	return t, nil
}

func translateInsertError(err error) error {
	switch {
	case errors.Is(err, ErrDuplicateToken):
		return &Error{Kind: AlreadyExists, Message: "Token already exists", Err: err}
	case errors.Is(err, ErrNoRow):
		return &Error{Kind: Internal, Message: "Failed to insert token", Err: err}
	default:
		return &Error{Kind: Internal, Message: "Failed to create token", Err: err}
	}
}

// List returns the tokens of userID that have not yet expired, newest first.
// A user without tokens yields an empty, non-nil slice.
func (s *Service) List(ctx context.Context, userID string) ([]Token, error) {
	if err := ValidateListRequest(userID); err != nil {
		metrics.TokenOperations.WithLabelValues("list", InvalidArgument.String()).Inc()
		return nil, err
	}

	list, err := s.store.ListActive(ctx, userID, s.now())
	if err != nil {
		s.logger.Error("token list failed", zap.String("user_id", userID), zap.Error(err))
		metrics.TokenOperations.WithLabelValues("list", Internal.String()).Inc()
		return nil, &Error{Kind: Internal, Message: "Failed to list tokens", Err: err}
	}
	if list == nil {
		list = []Token{}
	}

	metrics.TokenOperations.WithLabelValues("list", "ok").Inc()
	return list, nil
}
