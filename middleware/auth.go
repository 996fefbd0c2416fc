// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/VA7DBI/tokenAPI/config"
	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware guards the API with the static bearer keys listed in the
// auth section of the configuration. It protects access to the issuing
// endpoints; issued tokens are not accepted here.
type APIKeyMiddleware struct {
	cfg *config.Config
}

func NewAPIKeyMiddleware(cfg *config.Config) *APIKeyMiddleware {
	return &APIKeyMiddleware{cfg: cfg}
}

// Handler returns the gin middleware handler function
func (m *APIKeyMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Fast path: if auth is disabled, allow all requests
		if !m.cfg.Auth.Enabled {
			c.Next()
			return
		}

		key := extractToken(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		for _, valid := range m.cfg.Auth.Tokens {
			if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}
