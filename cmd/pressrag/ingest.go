package main

import (
	"github.com/spf13/cobra"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Index every document in the data folder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := flags.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			p, err := buildPipeline(ctx, cfg, log, false)
			if err != nil {
				return err
			}
			defer p.close()

			stats, err := p.ingestor.IngestFolder(ctx, cfg.DataFolder)
			if err != nil {
				return err
			}
			cmd.Printf("indexed %d documents (%d chunks), %d unchanged\n",
				stats.Documents, stats.Chunks, stats.Skipped)
			return nil
		},
	}
}
