// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import (
	"encoding/base64"
	"log/slog"

	"github.com/samber/oops"
)

// MinKeyBytes is the minimum decoded length of a signing key. For
// HMAC-SHA256 the key should carry at least 32 bytes of entropy.
const MinKeyBytes = 32

// Keys holds the process-wide secret material: the session-cookie
// signing key and the URL-signing key. Loaded once at startup,
// immutable afterwards, safe for concurrent reads.
type Keys struct {
	session []byte
	url     []byte
}

// LoadKeys decodes the base64-encoded keys and validates their entropy.
func LoadKeys(sessionKey, urlKey string) (*Keys, error) {
	s, err := decodeKey(sessionKey)
	if err != nil {
		return nil, oops.Code("KEY_SESSION_INVALID").With("key", "session").Wrap(err)
	}
	u, err := decodeKey(urlKey)
	if err != nil {
		return nil, oops.Code("KEY_URL_INVALID").With("key", "url").Wrap(err)
	}
	return &Keys{session: s, url: u}, nil
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, oops.Errorf("key is not valid base64")
	}
	if len(key) < MinKeyBytes {
		return nil, oops.With("decoded_bytes", len(key)).
			Errorf("key must decode to at least %d bytes", MinKeyBytes)
	}
	return key, nil
}

// SessionKey returns the session-cookie signing key.
func (k *Keys) SessionKey() []byte { return k.session }

// URLKey returns the URL-signing key, also used to digest reset tokens.
func (k *Keys) URLKey() []byte { return k.url }

// String implements fmt.Stringer without exposing key material.
func (k *Keys) String() string { return "auth.Keys(redacted)" }

// LogValue keeps the key material out of structured logs.
func (k *Keys) LogValue() slog.Value { return slog.StringValue("redacted") }
