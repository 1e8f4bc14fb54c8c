package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

const secretBytes = 32

func secretsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secrets",
		Short: "Generate JWT signing secrets for the environment file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := signingSecrets()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "JWT_SECRET=%s\nJWT_REFRESH_SECRET=%s\n", pair[0], pair[1])
			return nil
		},
	}
}

// signingSecrets returns independent 256-bit access and refresh secrets.
func signingSecrets() ([2]string, error) {
	var pair [2]string
	for i := range pair {
		b := make([]byte, secretBytes)
		if _, err := rand.Read(b); err != nil {
			return pair, fmt.Errorf("failed to read random bytes: %w", err)
		}
		pair[i] = hex.EncodeToString(b)
	}
	return pair, nil
}
