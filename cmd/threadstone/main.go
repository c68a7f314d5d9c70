// Command threadstone runs CPU and memory micro-benchmarks and produces
// schema-validated, optionally signed result records.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/threadstone/internal/config"
	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/logger"
	"github.com/spf13/cobra"
)

// Exit statuses.
const (
	exitFailure   = 1
	exitConfig    = 2
	exitIntegrity = 3
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "threadstone: %v\n", err)
		cancel()
		os.Exit(exitStatus(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "threadstone",
		Short: "CPU and memory benchmark with signed, schema-validated results",
		Long: `threadstone runs a workload kernel repeatedly across a pool of worker
threads, summarizes the samples into a result record, and optionally signs
the record with an Ed25519 key so it can be verified later.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Config file (default is ./threadstone.toml or $XDG_CONFIG_HOME/threadstone/threadstone.toml)")
	flags.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warning, error")
	flags.Bool("debug", false, "Enable debug logging")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newRunCmd(),
		newVerifyCmd(),
		newValidateCmd(),
		newSchemaCmd(),
		newKeygenCmd(),
		newHistoryCmd(),
	)

	return root
}

// setup resolves configuration for cmd and initializes logging. Logs go
// to the command's error stream; its output stream carries documents.
func setup(cmd *cobra.Command) (*config.Config, error) {
	var opts []config.Option
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}

	cfg, err := config.Load(cmd.Flags(), opts...)
	if err != nil {
		return nil, err
	}

	logger.InitWithWriter(cmd.ErrOrStderr(), cfg.Debug, cfg.Verbose, logger.IsService())
	if level, ok := logger.ParseLevel(cfg.LogLevel); ok {
		logger.SetLogLevel(level)
	}
	logger.Debug().
		Str("workload", cfg.Workload).
		Int("threads", cfg.Threads).
		Int("samples", cfg.Samples).
		Msg("Config loaded")

	return cfg, nil
}

func exitStatus(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrInvalidConfig, errors.ErrReadConfig, errors.ErrBindFlags,
		errors.ErrInvalidLogLevel, errors.ErrInvalidSamples, errors.ErrInvalidThreads,
		errors.ErrUnknownWorkload:
		return exitConfig
	case errors.ErrSchemaViolation, errors.ErrSignatureInvalid:
		return exitIntegrity
	default:
		return exitFailure
	}
}
