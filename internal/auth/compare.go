// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import "crypto/subtle"

// SafeEqual reports whether a and b are byte-for-byte equal in time
// independent of where the first mismatch occurs.
//
// subtle.ConstantTimeCompare requires equal-length inputs, so unequal
// lengths short-circuit to false. This leaks only the length, which is
// acceptable here: every value compared through SafeEqual is a
// fixed-length MAC or digest. Not for general string equality.
func SafeEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
