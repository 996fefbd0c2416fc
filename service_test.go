// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VA7DBI/tokenAPI/config"
	"github.com/VA7DBI/tokenAPI/store"
	"github.com/VA7DBI/tokenAPI/tokens"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// brokenBackend fails every storage call the way an unreachable database does.
type brokenBackend struct {
	insertErr error
}

func (b *brokenBackend) Insert(ctx context.Context, t tokens.NewToken) (tokens.Token, error) {
	return tokens.Token{}, b.insertErr
}

func (b *brokenBackend) ListActive(ctx context.Context, userID string, now time.Time) ([]tokens.Token, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (b *brokenBackend) Name() string                   { return "broken" }
func (b *brokenBackend) Ping(ctx context.Context) error { return errors.New("dial tcp: connection refused") }
func (b *brokenBackend) Close() error                   { return nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Storage.Backend = config.BackendMemory
	cfg.API.BasePath = "/"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return cfg
}

func setupTestServer(t *testing.T, backend store.Backend) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	if backend == nil {
		backend = store.NewMemoryTokenStore()
	}
	t.Cleanup(func() { backend.Close() })
	return newRouter(cfg, zap.NewNop(), backend)
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return doRequest(r, req)
}

func doRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createToken(t *testing.T, r *gin.Engine, userID string, scopes []string, minutes int) TokenResponse {
	body, err := json.Marshal(map[string]any{
		"userId":           userID,
		"scopes":           scopes,
		"expiresInMinutes": minutes,
	})
	require.NoError(t, err)

	w := doJSON(r, "POST", "/api/tokens", string(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func listTokens(t *testing.T, r *gin.Engine, userID string) []TokenResponse {
	w := doJSON(r, "GET", "/api/tokens?userId="+userID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ListTokensResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Tokens
}

func TestCreateTokenHandler(t *testing.T) {
	r := setupTestServer(t, nil)

	t.Run("ValidRequest", func(t *testing.T) {
		resp := createToken(t, r, "user123", []string{"read", "write"}, 60)

		assert.NotEmpty(t, resp.ID)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "user123", resp.UserID)
		assert.Equal(t, []string{"read", "write"}, resp.Scopes)
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, resp.CreatedAt)
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, resp.ExpiresAt)

		created, err := time.Parse(time.RFC3339, resp.CreatedAt)
		require.NoError(t, err)
		expires, err := time.Parse(time.RFC3339, resp.ExpiresAt)
		require.NoError(t, err)
		assert.WithinDuration(t, created.Add(time.Hour), expires, 2*time.Second)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 2*time.Second)
	})

	t.Run("IntegralFloatMinutes", func(t *testing.T) {
		for _, minutes := range []string{"60.0", "1e2"} {
			w := doJSON(r, "POST", "/api/tokens", fmt.Sprintf(`{"userId":"user123","scopes":["read"],"expiresInMinutes":%s}`, minutes))
			assert.Equal(t, http.StatusCreated, w.Code, minutes)
		}
	})

	invalid := []struct {
		name string
		body string
	}{
		{"EmptyUserID", `{"userId":"","scopes":["read"],"expiresInMinutes":60}`},
		{"MissingUserID", `{"scopes":["read"],"expiresInMinutes":60}`},
		{"NumericUserID", `{"userId":42,"scopes":["read"],"expiresInMinutes":60}`},
		{"EmptyScopes", `{"userId":"user123","scopes":[],"expiresInMinutes":60}`},
		{"MissingScopes", `{"userId":"user123","expiresInMinutes":60}`},
		{"ScopesNotArray", `{"userId":"user123","scopes":"read","expiresInMinutes":60}`},
		{"NullScopeEntry", `{"userId":"user123","scopes":["read",null],"expiresInMinutes":60}`},
		{"NumericScopeEntry", `{"userId":"user123","scopes":[1],"expiresInMinutes":60}`},
		{"BlankScopeEntry", `{"userId":"user123","scopes":["  "],"expiresInMinutes":60}`},
		{"ZeroMinutes", `{"userId":"user123","scopes":["read"],"expiresInMinutes":0}`},
		{"NegativeMinutes", `{"userId":"user123","scopes":["read"],"expiresInMinutes":-10}`},
		{"FractionalMinutes", `{"userId":"user123","scopes":["read"],"expiresInMinutes":1.5}`},
		{"StringMinutes", `{"userId":"user123","scopes":["read"],"expiresInMinutes":"60"}`},
		{"MissingMinutes", `{"userId":"user123","scopes":["read"]}`},
		{"HugeMinutes", `{"userId":"user123","scopes":["read"],"expiresInMinutes":1e300}`},
		{"MalformedJSON", `{"userId":`},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(r, "POST", "/api/tokens", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_argument", resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestListTokensHandler(t *testing.T) {
	r := setupTestServer(t, nil)

	t.Run("MissingUserID", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/tokens", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "userId is required")
	})

	t.Run("UnknownUser", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/tokens?userId=nonexistent", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"tokens":[]}`, w.Body.String())
	})

	t.Run("ActiveTokensNewestFirst", func(t *testing.T) {
		first := createToken(t, r, "testuser", []string{"read"}, 60)
		second := createToken(t, r, "testuser", []string{"write"}, 60)
		other := createToken(t, r, "otheruser", []string{"read"}, 60)

		list := listTokens(t, r, "testuser")
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)

		now := time.Now()
		for _, tok := range list {
			assert.Equal(t, "testuser", tok.UserID)
			assert.NotEqual(t, other.ID, tok.ID)
			expires, err := time.Parse(time.RFC3339, tok.ExpiresAt)
			require.NoError(t, err)
			assert.True(t, expires.After(now))
		}

		assert.Equal(t, list, listTokens(t, r, "testuser"))
	})
}

func TestStorageFailures(t *testing.T) {
	t.Run("DuplicateIsConflict", func(t *testing.T) {
		r := setupTestServer(t, &brokenBackend{insertErr: fmt.Errorf("%w: tokens_token_key", tokens.ErrDuplicateToken)})

		w := doJSON(r, "POST", "/api/tokens", `{"userId":"user123","scopes":["read"],"expiresInMinutes":60}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.JSONEq(t, `{"error":"Token already exists","code":"already_exists"}`, w.Body.String())
	})

	t.Run("InsertFailureHidesCause", func(t *testing.T) {
		r := setupTestServer(t, &brokenBackend{insertErr: errors.New("pq: password authentication failed")})

		w := doJSON(r, "POST", "/api/tokens", `{"userId":"user123","scopes":["read"],"expiresInMinutes":60}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "password")
		assert.Contains(t, w.Body.String(), "internal")
	})

	t.Run("ListFailure", func(t *testing.T) {
		r := setupTestServer(t, &brokenBackend{})

		w := doJSON(r, "GET", "/api/tokens?userId=user123", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("ValidationStillWins", func(t *testing.T) {
		r := setupTestServer(t, &brokenBackend{})

		w := doJSON(r, "GET", "/api/tokens?userId=", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
