package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docflow/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var documentID int64

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := logs.Options{Lines: lines, Follow: follow}
			if documentID > 0 {
				opts.Match = logs.DocumentFilter(documentID)
			}

			streamCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			return logs.Stream(streamCtx, cfg.LogFilePath(), opts, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show first")
	cmd.Flags().Int64Var(&documentID, "document", 0, "Only show lines for this document id")
	return cmd
}
