// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import (
	"context"
	"fmt"
)

// Mailer dispatches a single message. Implementations live in
// internal/mail; delivery failures are logged by the caller and never
// roll back the state change that triggered the message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Mail subjects.
const (
	verificationSubject = "Confirm your email"
	resetRequestSubject = "Reset your password"
	resetNotifySubject  = "Your password was reset"
)

// verificationBody renders the verification email around a signed link.
func verificationBody(link string) string {
	return fmt.Sprintf("To verify your email, open the link below.\n\n%s\n", link)
}

// resetRequestBody renders the reset email around the tokenized URL.
func resetRequestBody(link string) string {
	return fmt.Sprintf("To reset your password, open the link below.\n\n%s\n", link)
}

// resetNotifyBody confirms a completed password reset.
func resetNotifyBody() string {
	return "Your password was successfully reset. If this wasn't you, contact support immediately.\n"
}
