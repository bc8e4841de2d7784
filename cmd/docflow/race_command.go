package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/api"
)

func newRaceCommand(ctx *commandContext) *cobra.Command {
	var id int64
	var threads, attempts int

	cmd := &cobra.Command{
		Use:   "race",
		Short: "Fire concurrent approvals at one document and report the outcome counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id <= 0 {
				return fmt.Errorf("--id must be a positive document id")
			}
			return ctx.withService(cmd, func(svc *api.DocumentService) error {
				report, err := svc.ConcurrentApprove(cmd.Context(), id, threads, attempts)
				if err != nil {
					return notFoundHint(err, id)
				}
				resp := api.FromRaceReport(report)
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				rows := [][]string{
					{"Attempts", fmt.Sprint(resp.Attempts)},
					{"Success", fmt.Sprint(resp.SuccessCount)},
					{"Conflict", fmt.Sprint(resp.ConflictCount)},
					{"Errors", fmt.Sprint(resp.ErrorCount)},
					{"Final status", resp.FinalStatus},
					{"Elapsed", fmt.Sprintf("%d ms", resp.ElapsedMillis)},
				}
				fmt.Fprint(out, renderTable(out, []string{"Document " + fmt.Sprint(resp.DocumentID), ""}, rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Document id")
	cmd.Flags().IntVar(&threads, "threads", 10, "Concurrent workers (1-50)")
	cmd.Flags().IntVar(&attempts, "attempts", 20, "Total approval attempts (1-100)")
	return cmd
}
