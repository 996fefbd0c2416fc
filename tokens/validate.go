// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package tokens

import (
	"math"
	"strings"
	"time"
)

// MaxExpiresInMinutes is the longest lifetime whose duration still fits in a
// time.Duration.
const MaxExpiresInMinutes = int(math.MaxInt64 / int64(time.Minute))

// ValidateCreateRequest checks a create request before anything is persisted.
// It reports the first violated rule.
func ValidateCreateRequest(userID string, scopes []string, expiresInMinutes int) error {
	if strings.TrimSpace(userID) == "" {
		return newInvalidArgument("userId must be a non empty string")
	}

	if len(scopes) == 0 {
		return newInvalidArgument("scopes must be a non empty array")
	}

	for _, s := range scopes {
		if strings.TrimSpace(s) == "" {
			return newInvalidArgument("scopes cannot contain empty strings")
		}
	}

	if expiresInMinutes <= 0 {
		return newInvalidArgument("expiresInMinutes must be a positive integer")
	}
	if expiresInMinutes > MaxExpiresInMinutes {
		return newInvalidArgument("expiresInMinutes is too large")
	}

	return nil
}

// ValidateListRequest checks the owner of a list request.
func ValidateListRequest(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return newInvalidArgument("userId is required")
	}
	return nil
}
