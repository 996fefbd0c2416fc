// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"

	"github.com/VA7DBI/tokenAPI/tokens"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// isoMillis matches JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type TokenAPI struct {
	service *tokens.Service
	logger  *zap.Logger
}

// CreateTokenRequest is the body of POST /api/tokens. Scopes and
// ExpiresInMinutes stay raw until decoded so that type mismatches surface as
// validation errors rather than generic bind failures.
type CreateTokenRequest struct {
	UserID           string          `json:"userId" example:"user123"`
	Scopes           json.RawMessage `json:"scopes" swaggertype:"array,string" example:"read,write"`
	ExpiresInMinutes json.RawMessage `json:"expiresInMinutes" swaggertype:"integer" example:"60"`
}

type TokenResponse struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	Scopes    []string `json:"scopes"`
	CreatedAt string   `json:"createdAt" example:"2025-03-01T12:00:00.000Z"`
	ExpiresAt string   `json:"expiresAt" example:"2025-03-01T13:00:00.000Z"`
	Token     string   `json:"token"`
}

type ListTokensResponse struct {
	Tokens []TokenResponse `json:"tokens"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewTokenAPI(service *tokens.Service, logger *zap.Logger) *TokenAPI {
	return &TokenAPI{service: service, logger: logger}
}

// @Summary     Create a token
// @Description Issue a new opaque bearer token for a user with the given scopes and lifetime
// @Tags        tokens
// @Accept      json
// @Produce     json
// @Param       request body CreateTokenRequest true "Token to create"
// @Success     201 {object} TokenResponse
// @Failure     400 {object} ErrorResponse
// @Failure     409 {object} ErrorResponse
// @Failure     500 {object} ErrorResponse
// @Router      /api/tokens [post]
func (a *TokenAPI) CreateTokenHandler(c *gin.Context) {
	var req CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.handleError(c, tokens.InvalidArgumentError("invalid request body"))
		return
	}

	scopes, err := decodeScopes(req.Scopes)
	if err != nil {
		a.handleError(c, err)
		return
	}
	minutes, err := decodeMinutes(req.ExpiresInMinutes)
	if err != nil {
		a.handleError(c, err)
		return
	}

	t, err := a.service.Create(c.Request.Context(), req.UserID, scopes, minutes)
	if err != nil {
		a.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newTokenResponse(t))
}

// @Summary     List active tokens
// @Description List a user's tokens that have not expired, most recently created first
// @Tags        tokens
// @Produce     json
// @Param       userId query string true "Owner of the tokens"
// @Success     200 {object} ListTokensResponse
// @Failure     400 {object} ErrorResponse
// @Failure     500 {object} ErrorResponse
// @Router      /api/tokens [get]
func (a *TokenAPI) ListTokensHandler(c *gin.Context) {
	list, err := a.service.List(c.Request.Context(), c.Query("userId"))
	if err != nil {
		a.handleError(c, err)
		return
	}

	resp := ListTokensResponse{Tokens: make([]TokenResponse, 0, len(list))}
	for _, t := range list {
		resp.Tokens = append(resp.Tokens, newTokenResponse(t))
	}
	c.JSON(http.StatusOK, resp)
}

func (a *TokenAPI) handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	kind := tokens.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case tokens.InvalidArgument:
		status = http.StatusBadRequest
		a.logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.String("reason", tokens.MessageOf(err)))
	case tokens.AlreadyExists:
		status = http.StatusConflict
	}

	c.JSON(status, ErrorResponse{Error: tokens.MessageOf(err), Code: kind.String()})
}

func newTokenResponse(t tokens.Token) TokenResponse {
	return TokenResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		Scopes:    t.Scopes,
		CreatedAt: t.CreatedAt.UTC().Format(isoMillis),
		ExpiresAt: t.ExpiresAt.UTC().Format(isoMillis),
		Token:     t.Token,
	}
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// decodeScopes accepts a JSON array of strings. A missing field decodes to
// nil and null entries to "", both of which the validator rejects.
func decodeScopes(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}

	var entries []*string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, tokens.InvalidArgumentError("scopes must be a non empty array of strings")
	}

	scopes := make([]string, len(entries))
	for i, s := range entries {
		if s != nil {
			scopes[i] = *s
		}
	}
	return scopes, nil
}

// decodeMinutes accepts any JSON number with an integral value, so 60 and
// 60.0 are equivalent. A missing field decodes to 0.
func decodeMinutes(raw json.RawMessage) (int, error) {
	if isNull(raw) {
		return 0, nil
	}
	invalid := tokens.InvalidArgumentError("expiresInMinutes must be a positive integer")

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, invalid
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, invalid
	}

	if i, err := n.Int64(); err == nil {
		return clampMinutes(float64(i)), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, invalid
	}
	return clampMinutes(f), nil
}

// clampMinutes converts an integral value to int, pinning anything beyond
// the accepted range just outside it so the validator still rejects it.
func clampMinutes(f float64) int {
	switch {
	case f > float64(tokens.MaxExpiresInMinutes):
		return tokens.MaxExpiresInMinutes + 1
	case f < 0:
		return -1
	}
	return int(f)
}
