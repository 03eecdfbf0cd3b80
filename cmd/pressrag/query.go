package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pressrag-ai/pressrag/pkg/generate"
	"github.com/pressrag-ai/pressrag/pkg/retrieval"
)

func newQueryCmd(flags *rootFlags) *cobra.Command {
	var topK int
	var retrieveOnly bool

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from the indexed publications",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			question := strings.Join(args, " ")

			p, err := buildPipeline(ctx, cfg, log, !retrieveOnly)
			if err != nil {
				return err
			}
			defer p.close()

			result, err := p.retriever.Retrieve(ctx, retrieval.Query{Text: question, TopK: topK})
			if err != nil {
				return err
			}
			assembled := p.assembler.Assemble(result.Chunks)

			if retrieveOnly || p.generator == nil {
				cmd.Println(assembled.Text)
				printSources(cmd, assembled)
				return nil
			}

			messages := generate.BuildMessages(question, assembled.Text, nil)
			answer, err := p.generator.Generate(ctx, messages)
			if err != nil {
				return err
			}
			cmd.Println(answer)
			printSources(cmd, assembled)
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve (0 uses config)")
	cmd.Flags().BoolVar(&retrieveOnly, "retrieve-only", false, "print the assembled context instead of a generated answer")
	return cmd
}

func printSources(cmd *cobra.Command, assembled *retrieval.AssembledContext) {
	if len(assembled.Citations) == 0 {
		return
	}
	cmd.Println("\nSources:")
	for _, c := range assembled.Citations {
		cmd.Println(fmt.Sprintf("  %d. %s (%s, score %.3f)", c.Index, c.PublicationID, c.Source, c.Score))
	}
}
