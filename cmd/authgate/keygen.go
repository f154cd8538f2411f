// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package main

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authgate/authgate/internal/auth"
)

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate signing keys",
		Long: `Generate base64-encoded random keys suitable for the session and
URL signing key settings.`,
		RunE: runKeygen,
	}
	cmd.Flags().Int("bytes", auth.MinKeyBytes, "key size in bytes")
	cmd.Flags().Int("count", 2, "number of keys to generate")
	return cmd
}

func runKeygen(cmd *cobra.Command, _ []string) error {
	size, err := cmd.Flags().GetInt("bytes")
	if err != nil {
		return oops.Code("FLAG_INVALID").Wrap(err)
	}
	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return oops.Code("FLAG_INVALID").Wrap(err)
	}
	if size < auth.MinKeyBytes {
		return oops.Code("KEYGEN_INVALID").
			With("bytes", size).
			Errorf("key size must be at least %d bytes", auth.MinKeyBytes)
	}
	if count < 1 {
		return oops.Code("KEYGEN_INVALID").
			With("count", count).
			Errorf("count must be at least 1")
	}

	for i := 0; i < count; i++ {
		key := make([]byte, size)
		if _, err := rand.Read(key); err != nil {
			return oops.Code("KEYGEN_FAILED").Wrap(err)
		}
		cmd.Println(base64.StdEncoding.EncodeToString(key))
	}
	return nil
}
