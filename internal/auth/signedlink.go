// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

// Signed-link configuration.
const (
	// DefaultLinkLifetime is how long a verification link stays valid.
	DefaultLinkLifetime = 12 * time.Hour

	// SignatureLength is the length of an encoded signature:
	// HMAC-SHA256 output (32 bytes) in unpadded base64url.
	SignatureLength = 43
)

// LinkSigner builds and verifies stateless, tamper-evident, expiring
// verification URLs. Expiry is carried as milliseconds since epoch
// end-to-end; no other time unit appears on the wire.
type LinkSigner struct {
	key    []byte
	origin string
}

// NewLinkSigner creates a LinkSigner over the URL-signing key.
// origin is the scheme://host[:port] the links point at.
func NewLinkSigner(key []byte, origin string) *LinkSigner {
	return &LinkSigner{key: key, origin: origin}
}

// canonical returns the URL that gets signed: base path, subject id,
// and expiry, with no signature parameter.
func (s *LinkSigner) canonical(userID, expiredAt int64) string {
	return fmt.Sprintf("%s/email/verify?id=%d&expiredAt=%d", s.origin, userID, expiredAt)
}

// Sign returns the encoded signature for the given subject and expiry.
func (s *LinkSigner) Sign(userID, expiredAt int64) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(s.canonical(userID, expiredAt)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerificationURL returns a complete signed verification URL expiring
// lifetime from now.
func (s *LinkSigner) VerificationURL(userID int64, now time.Time, lifetime time.Duration) string {
	expiredAt := now.Add(lifetime).UnixMilli()
	return fmt.Sprintf("%s&signature=%s", s.canonical(userID, expiredAt), s.Sign(userID, expiredAt))
}

// Verify reports whether the presented signature and expiry form a
// valid link for userID.
//
// The canonical URL is recomputed from the authenticated session's own
// user id, never from a client-presented one, so a signature minted
// for one user cannot be replayed against another. The link is valid
// iff the recomputed signature matches (constant-time) and the expiry
// lies in the future.
func (s *LinkSigner) Verify(userID, expiredAt int64, signature string, now time.Time) bool {
	expected := s.Sign(userID, expiredAt)
	return SafeEqual([]byte(expected), []byte(signature)) && expiredAt > now.UnixMilli()
}
