// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth_test

import (
	"fmt"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/auth"
)

const testOrigin = "https://auth.example.com"

func testSigner() *auth.LinkSigner {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 7)
	}
	return auth.NewLinkSigner(key, testOrigin)
}

func TestLinkSigner_Sign(t *testing.T) {
	signer := testSigner()

	t.Run("encoded length is fixed", func(t *testing.T) {
		sig := signer.Sign(7, 1700000000000)
		assert.Len(t, sig, auth.SignatureLength)
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		assert.Equal(t, signer.Sign(7, 1700000000000), signer.Sign(7, 1700000000000))
	})

	t.Run("signature binds user and expiry", func(t *testing.T) {
		base := signer.Sign(7, 1700000000000)
		assert.NotEqual(t, base, signer.Sign(8, 1700000000000))
		assert.NotEqual(t, base, signer.Sign(7, 1700000000001))
	})

	t.Run("signature depends on key", func(t *testing.T) {
		other := auth.NewLinkSigner(make([]byte, 32), testOrigin)
		assert.NotEqual(t, signer.Sign(7, 1700000000000), other.Sign(7, 1700000000000))
	})
}

func TestLinkSigner_VerificationURL(t *testing.T) {
	signer := testSigner()
	now := time.Now()

	link := signer.VerificationURL(42, now, 12*time.Hour)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/email/verify", parsed.Path)
	assert.Equal(t, "42", parsed.Query().Get("id"))

	expiredAt, err := strconv.ParseInt(parsed.Query().Get("expiredAt"), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, now.Add(12*time.Hour).UnixMilli(), expiredAt)

	signature := parsed.Query().Get("signature")
	assert.Len(t, signature, auth.SignatureLength)
	assert.True(t, signer.Verify(42, expiredAt, signature, now))
}

func TestLinkSigner_Verify(t *testing.T) {
	signer := testSigner()
	now := time.Now()
	expiredAt := now.Add(time.Hour).UnixMilli()

	t.Run("valid link verifies", func(t *testing.T) {
		sig := signer.Sign(7, expiredAt)
		assert.True(t, signer.Verify(7, expiredAt, sig, now))
	})

	t.Run("expired link fails", func(t *testing.T) {
		past := now.Add(-time.Minute).UnixMilli()
		sig := signer.Sign(7, past)
		assert.False(t, signer.Verify(7, past, sig, now))
	})

	t.Run("expiry exactly now fails", func(t *testing.T) {
		at := now.UnixMilli()
		sig := signer.Sign(7, at)
		assert.False(t, signer.Verify(7, at, sig, time.UnixMilli(at)))
	})

	t.Run("signature minted for another user fails", func(t *testing.T) {
		sig := signer.Sign(7, expiredAt)
		assert.False(t, signer.Verify(8, expiredAt, sig, now))
	})

	t.Run("tampered expiry fails", func(t *testing.T) {
		sig := signer.Sign(7, expiredAt)
		assert.False(t, signer.Verify(7, expiredAt+60_000, sig, now))
	})

	t.Run("corrupted signature fails", func(t *testing.T) {
		sig := signer.Sign(7, expiredAt)
		flipped := "A" + sig[1:]
		if flipped == sig {
			flipped = "B" + sig[1:]
		}
		assert.False(t, signer.Verify(7, expiredAt, flipped, now))
	})

	t.Run("truncated and empty signatures fail", func(t *testing.T) {
		sig := signer.Sign(7, expiredAt)
		assert.False(t, signer.Verify(7, expiredAt, sig[:len(sig)-1], now))
		assert.False(t, signer.Verify(7, expiredAt, "", now))
	})
}

// The canonical form is part of the wire contract: clients parse these
// exact query parameter names.
func TestLinkSigner_CanonicalForm(t *testing.T) {
	signer := testSigner()
	now := time.Unix(1700000000, 0)

	link := signer.VerificationURL(7, now, time.Hour)
	expiredAt := now.Add(time.Hour).UnixMilli()
	prefix := fmt.Sprintf("%s/email/verify?id=7&expiredAt=%d&signature=", testOrigin, expiredAt)
	assert.True(t, len(link) == len(prefix)+auth.SignatureLength && link[:len(prefix)] == prefix,
		"link %q must start with %q", link, prefix)
}
