package main

import (
	"codeberg.org/mutker/threadstone/internal/archive"
	"codeberg.org/mutker/threadstone/internal/config"
	"codeberg.org/mutker/threadstone/internal/report"
	"codeberg.org/mutker/threadstone/internal/signing"
	"codeberg.org/mutker/threadstone/internal/workload"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		filter string
		limit  int
		show   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List runs stored in the local archive",
		Long: `List archived runs, newest first. With --show, print the full summary of
the run whose digest starts with the given prefix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			store, err := openArchive(cfg, true)
			if err != nil {
				return err
			}
			defer store.Close()

			if show != "" {
				entry, err := store.Get(cmd.Context(), show)
				if err != nil {
					return err
				}

				rec := entry.Record
				status := signing.StatusUnsigned
				if rec.Signed() {
					status = signing.StatusUnchecked
					if cfg.PublicKey != "" {
						public, err := signing.LoadPublicKey(cfg.PublicKey)
						if err != nil {
							return err
						}
						status = signing.VerifyRecord(rec, public)
					}
				}

				summary := report.Summary{
					Record: rec,
					Status: status,
					Digest: entry.Digest,
					Source: "archived " + entry.CreatedAt.Format("2006-01-02 15:04:05"),
				}
				if k, err := workload.New(rec.Workload, workload.Options{}); err == nil {
					summary.Unit = k.Unit()
				}

				return report.Render(cmd.OutOrStdout(), summary)
			}

			entries, err := store.List(cmd.Context(), archive.ListOptions{
				Workload: workload.ID(filter),
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			return report.History(cmd.OutOrStdout(), entries)
		},
	}

	flags := cmd.Flags()
	flags.String("archive-db", config.DefaultArchiveDB, "Archive database path")
	flags.StringVar(&filter, "filter", "", "Only list runs of this workload")
	flags.IntVar(&limit, "limit", 20, "Maximum number of runs (0 = all)")
	flags.StringVar(&show, "show", "", "Show the run with this digest or digest prefix")
	flags.String("public-key", "",
		"Ed25519 public key file used to check signatures with --show")

	return cmd
}
