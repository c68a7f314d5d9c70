package main

import (
	"io"
	"os"
	"strings"

	"codeberg.org/mutker/threadstone/internal/archive"
	"codeberg.org/mutker/threadstone/internal/config"
	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/harness"
	"codeberg.org/mutker/threadstone/internal/logger"
	"codeberg.org/mutker/threadstone/internal/pid"
	"codeberg.org/mutker/threadstone/internal/report"
	"codeberg.org/mutker/threadstone/internal/result"
	"codeberg.org/mutker/threadstone/internal/signing"
	"codeberg.org/mutker/threadstone/internal/workload"
	"github.com/spf13/cobra"
)

const outputPerm = 0o644

func newRunCmd() *cobra.Command {
	var (
		pidFile string
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workload and emit a result record",
		Long: `Run a workload kernel --samples times across --threads workers and write
the result record as JSON to stdout or --output. When a signing key is
configured the record is signed; otherwise it is written unsigned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			return runBenchmark(cmd, cfg, pidFile, quiet)
		},
	}

	ids := make([]string, 0, len(workload.IDs()))
	for _, id := range workload.IDs() {
		ids = append(ids, string(id))
	}

	flags := cmd.Flags()
	flags.StringP("workload", "w", config.DefaultWorkload,
		"Workload kernel: "+strings.Join(ids, ", "))
	flags.IntP("threads", "t", 0,
		"Worker threads (0 = all logical cores)")
	flags.IntP("samples", "n", config.DefaultSamples,
		"Number of samples")
	flags.Uint64P("iterations", "i", 0,
		"Work budget per sample (0 = kernel default)")
	flags.Int("stream-size", workload.DefaultStreamSize,
		"Array length for the stream kernel")
	flags.String("signing-key", "",
		"Ed25519 private key file (64 raw bytes); unset means unsigned")
	flags.StringP("output", "o", "",
		"Write the record to this file instead of stdout")
	flags.Bool("archive", false,
		"Store the record in the local archive")
	flags.String("archive-db", config.DefaultArchiveDB,
		"Archive database path")
	flags.StringVar(&pidFile, "pid-file", pid.Path(),
		"Run lock file")
	flags.BoolVarP(&quiet, "quiet", "q", false,
		"Do not print the summary report")

	return cmd
}

func runBenchmark(cmd *cobra.Command, cfg *config.Config, pidFile string, quiet bool) error {
	ctx := cmd.Context()
	log := logger.Default()

	kernel, err := workload.New(workload.ID(cfg.Workload), cfg.KernelOptions())
	if err != nil {
		return err
	}

	// Load the key before spending time on sampling.
	var key []byte
	if cfg.Signing() {
		if key, err = signing.LoadPrivateKey(cfg.SigningKey); err != nil {
			return err
		}
	}

	lock, err := pid.Acquire(pidFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn().Err(err).Msg("Failed to remove run lock")
		}
	}()

	host := harness.DescribeHost()
	log.Info().
		Str("cpu", host.CPU).
		Int("logical_cores", host.LogicalCores).
		Str("clock", host.ClockSource).
		Str("clock_factor", host.ClockFactor).
		Msg("Host")

	sampler := harness.NewSampler(log)
	run, err := sampler.Collect(ctx, kernel, harness.Config{
		Workers: cfg.Threads,
		Samples: cfg.Samples,
		Budget:  cfg.Iterations,
	})
	if err != nil {
		return err
	}

	rec, err := result.New(kernel.ID(), run.Threads, run.Budget, run.Values)
	if err != nil {
		return err
	}

	status := signing.StatusUnsigned
	if key != nil {
		if rec, err = signing.SignRecord(rec, key); err != nil {
			return err
		}
		public, err := signing.PublicKeyOf(key)
		if err != nil {
			return err
		}
		status = signing.VerifyRecord(rec, public)
	}

	data, err := result.Encode(rec, true)
	if err != nil {
		return err
	}
	if violations := result.Validate(data); len(violations) > 0 {
		return result.ValidationError(violations)
	}

	if err := writeOutput(cmd.OutOrStdout(), cfg.Output, data); err != nil {
		return err
	}

	digest, err := archiveRecord(cmd, cfg, rec)
	if err != nil {
		return err
	}

	if quiet {
		return nil
	}

	return report.Render(cmd.ErrOrStderr(), report.Summary{
		Record:  rec,
		Unit:    kernel.Unit(),
		Status:  status,
		Host:    &host,
		Elapsed: run.Elapsed,
		Digest:  digest,
	})
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}

	if err := os.WriteFile(path, data, outputPerm); err != nil {
		return errors.New().Wrap(errors.ErrOperationFailed, err)
	}
	logger.Info().Str("path", path).Msg("Result written")

	return nil
}

// openArchive opens the archive at cfg.ArchiveDB. It discards records
// unless enabled is set.
func openArchive(cfg *config.Config, enabled bool) (archive.Archive, error) {
	acfg := archive.DefaultConfig()
	if cfg.ArchiveDB != "" {
		acfg.DBPath = cfg.ArchiveDB
	}
	acfg.Enabled = enabled

	return archive.Open(acfg, logger.Default())
}

// archiveRecord stores rec when archiving is enabled and returns its digest,
// or "" when it is not.
func archiveRecord(cmd *cobra.Command, cfg *config.Config, rec result.Record) (string, error) {
	store, err := openArchive(cfg, cfg.Archive)
	if err != nil {
		return "", err
	}
	defer store.Close()

	entry, err := store.Store(cmd.Context(), rec)
	if err != nil {
		return "", err
	}
	if !store.Enabled() {
		return "", nil
	}
	logger.Info().
		Str("digest", entry.Digest).
		Int64("id", entry.ID).
		Str("path", cfg.ArchiveDB).
		Msg("Run archived")

	return entry.Digest, nil
}
