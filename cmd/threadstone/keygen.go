package main

import (
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/signing"
	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen [DIR]",
		Short: "Generate an Ed25519 key pair for signing results",
		Long: `Generate an Ed25519 key pair and write threadstone.key (64 raw bytes,
mode 0600) and threadstone.pub (32 raw bytes) into DIR, default the
current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(cmd); err != nil {
				return err
			}

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			privatePath := filepath.Join(dir, signing.PrivateKeyFile)
			if _, err := os.Stat(privatePath); err == nil && !force {
				return errors.New().WithMessage(errors.ErrWriteKey,
					privatePath+" exists; use --force to replace it")
			}

			public, private, err := signing.GenerateKeypair()
			if err != nil {
				return err
			}
			if err := signing.SaveKeypair(dir, public, private); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "private key: %s\n", privatePath)
			fmt.Fprintf(out, "public key:  %s\n", filepath.Join(dir, signing.PublicKeyFile))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing key pair")

	return cmd
}
