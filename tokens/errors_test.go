// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package tokens

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("handler: %w", &Error{Kind: Internal, Message: "Failed to create token", Err: cause})

	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, "Failed to create token", MessageOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	assert.Equal(t, Internal, KindOf(errors.New("plain")))
	assert.Equal(t, "internal error", MessageOf(errors.New("plain")))

	bad := InvalidArgumentError("invalid request body")
	assert.Equal(t, InvalidArgument, KindOf(bad))
	assert.Equal(t, "invalid request body", bad.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "invalid_argument", InvalidArgument.String())
	assert.Equal(t, "already_exists", AlreadyExists.String())
	assert.Equal(t, "internal", Internal.String())
}
