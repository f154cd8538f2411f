// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/auth"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", auth.NormalizeEmail("Alice@Example.COM"))
	assert.Equal(t, "alice@example.com", auth.NormalizeEmail("  alice@example.com\n"))
	assert.Equal(t, "", auth.NormalizeEmail("   "))
}

func TestUser_Verified(t *testing.T) {
	now := time.Now()
	assert.False(t, (&auth.User{}).Verified())
	assert.True(t, (&auth.User{VerifiedAt: &now}).Verified())
}

func TestUser_Serialize(t *testing.T) {
	now := time.Now()
	user := &auth.User{
		ID:           7,
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: "$2b$12$secretdigest",
		VerifiedAt:   &now,
	}

	out, err := json.Marshal(user.Serialize())
	require.NoError(t, err)

	assert.Contains(t, string(out), `"alice@example.com"`)
	assert.NotContains(t, string(out), "secretdigest",
		"serialized user must never carry the password digest")
}
