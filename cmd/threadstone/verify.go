package main

import (
	"fmt"
	"os"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/logger"
	"codeberg.org/mutker/threadstone/internal/report"
	"codeberg.org/mutker/threadstone/internal/result"
	"codeberg.org/mutker/threadstone/internal/signing"
	"codeberg.org/mutker/threadstone/internal/workload"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	var requireSigned bool

	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Validate a result record and check its signature",
		Long: `Check a result record against the schema and, when it is signed, check
its signature. Both outcomes are reported; the command fails if either
check fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			path := args[0]
			out := cmd.OutOrStdout()

			data, err := os.ReadFile(path)
			if err != nil {
				return errors.New().Wrap(errors.ErrResourceNotFound, err)
			}

			violations := result.Validate(data)
			printViolations(cmd, path, violations)

			rec, err := result.Decode(data)
			if err != nil {
				// Without a decoded record there is nothing to verify.
				fmt.Fprintf(out, "%s: signature not checked, record cannot be decoded\n", path)
				if len(violations) > 0 {
					return result.ValidationError(violations)
				}
				return err
			}

			status := signing.StatusUnsigned
			if rec.Signed() {
				if cfg.PublicKey == "" {
					return errors.New().WithMessage(errors.ErrInvalidConfig,
						"record is signed; a public key is required to verify it")
				}
				public, err := signing.LoadPublicKey(cfg.PublicKey)
				if err != nil {
					return err
				}
				status = signing.VerifyRecord(rec, public)
			}

			logger.Debug().
				Str("file", path).
				Int("bytes", len(data)).
				Int("violations", len(violations)).
				Str("status", status.String()).
				Msg("Record verified")

			if len(violations) == 0 {
				fmt.Fprintf(out, "%s: schema valid\n", path)
			}

			summary := report.Summary{
				Record: rec,
				Status: status,
				Source: path,
			}
			if k, err := workload.New(rec.Workload, workload.Options{}); err == nil {
				summary.Unit = k.Unit()
			}
			if err := report.Render(out, summary); err != nil {
				return err
			}

			var sigErr error
			switch {
			case status == signing.StatusInvalid:
				sigErr = errors.New().WithMessage(errors.ErrSignatureInvalid, path)
			case requireSigned && status == signing.StatusUnsigned:
				sigErr = errors.New().WithMessage(errors.ErrSignatureInvalid, "record is not signed")
			}

			if len(violations) == 0 {
				return sigErr
			}
			if sigErr == nil {
				return result.ValidationError(violations)
			}

			return errors.New().Wrap(errors.ErrSchemaViolation, sigErr).
				WithMessage(fmt.Sprintf("%d schema violation(s)", len(violations)))
		},
	}

	flags := cmd.Flags()
	flags.String("public-key", "",
		"Ed25519 public key file (32 raw bytes or an ssh-ed25519 line)")
	flags.BoolVar(&requireSigned, "require-signed", false,
		"Fail when the record carries no signature")

	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a result record against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(cmd); err != nil {
				return err
			}

			if err := validateFile(cmd, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
			return nil
		},
	}
}

// validateFile checks path against the record schema and confirms it
// decodes as a record.
func validateFile(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New().Wrap(errors.ErrResourceNotFound, err)
	}

	if violations := result.Validate(data); len(violations) > 0 {
		printViolations(cmd, path, violations)
		return result.ValidationError(violations)
	}

	_, err = result.Decode(data)
	return err
}

// printViolations writes each violation on its own line.
func printViolations(cmd *cobra.Command, path string, violations []result.Violation) {
	for _, v := range violations {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, v)
	}
}
