package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pressrag-ai/pressrag/pkg/api"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var noGenerator bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := flags.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracing := initTracing(ctx, cfg, log)
			defer func() { _ = shutdownTracing(context.Background()) }()

			p, err := buildPipeline(ctx, cfg, log, !noGenerator)
			if err != nil {
				return err
			}
			defer p.close()

			server := api.New(api.Options{
				Retriever:  p.retriever,
				Assembler:  p.assembler,
				Ingestor:   p.ingestor,
				Generator:  p.generator,
				Store:      p.store,
				DataFolder: cfg.DataFolder,
				Metrics:    p.metrics,
				Log:        log,
			})
			return server.Run(ctx, cfg.Server.Address, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
		},
	}

	cmd.Flags().BoolVar(&noGenerator, "no-generator", false, "serve retrieval-only responses without a chat model")
	return cmd
}
