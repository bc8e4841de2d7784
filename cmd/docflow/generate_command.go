package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/generator"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var count int
	var url string
	var ratePerSecond float64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create documents in bulk through a running daemon's HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := generator.OptionsFromConfig(cfg)
			if cmd.Flags().Changed("count") {
				opts.Count = count
			}
			if cmd.Flags().Changed("url") {
				opts.BaseURL = url
			}
			if cmd.Flags().Changed("rate") {
				opts.RatePerSecond = ratePerSecond
			}
			opts.Logger = ctx.cliLogger()

			gen, err := generator.New(opts)
			if err != nil {
				return err
			}
			summary, err := gen.Run(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"requested":     summary.Requested,
					"created":       summary.Created,
					"errors":        summary.Errors,
					"elapsedMillis": summary.Elapsed.Milliseconds(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d of %d documents in %s (errors=%d)\n",
				summary.Created, summary.Requested, summary.Elapsed.Round(1e6), summary.Errors)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of documents (defaults to [generator] count)")
	cmd.Flags().StringVar(&url, "url", "", "Create endpoint (defaults to [generator] base_url)")
	cmd.Flags().Float64Var(&ratePerSecond, "rate", 0, "Requests per second, 0 for unlimited")
	return cmd
}
