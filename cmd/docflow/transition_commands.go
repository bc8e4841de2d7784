package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/document"
	"docflow/internal/lifecycle"
)

type transitionKind int

const (
	transitionSubmit transitionKind = iota
	transitionApprove
)

func newTransitionCommand(ctx *commandContext, kind transitionKind) *cobra.Command {
	var initiator string

	use, short := "submit <id>...", "Submit draft documents for approval"
	if kind == transitionApprove {
		use, short = "approve <id>...", "Approve submitted documents"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(svc *api.DocumentService) error {
				var result lifecycle.Result
				switch {
				case kind == transitionApprove && len(ids) == 1:
					var outcome document.Outcome
					outcome, err = svc.ApproveSingle(cmd.Context(), ids[0], initiator)
					outcomes := []document.Outcome{outcome}
					result = lifecycle.Result{Outcomes: outcomes, Counts: document.Tally(outcomes)}
				case kind == transitionApprove:
					result, err = svc.ApproveBatch(cmd.Context(), ids, initiator)
				default:
					result, err = svc.SubmitBatch(cmd.Context(), ids, initiator)
				}
				if err != nil {
					return err
				}
				return printBatch(cmd, ctx, api.FromResult(result))
			})
		},
	}
	cmd.Flags().StringVar(&initiator, "initiator", "cli", "Identity recorded in the history")
	return cmd
}

func newClaimCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "claim <DRAFT|SUBMITTED>",
		Short: "Claim eligible document ids the way the workers do",
		Long: "Claim marks up to --limit documents in the given status so other claimers skip them " +
			"until the configured lease expires or the documents transition.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := document.ParseStatus(args[0])
			if !ok {
				return fmt.Errorf("unknown status %q", args[0])
			}
			return ctx.withService(cmd, func(svc *api.DocumentService) error {
				ids, err := svc.ClaimEligible(cmd.Context(), status, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"status": status, "ids": ids})
				}
				if len(ids) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No unclaimed %s documents\n", status)
					return nil
				}
				parts := make([]string, len(ids))
				for i, id := range ids {
					parts[i] = strconv.FormatInt(id, 10)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Claimed %d %s documents: %s\n", len(ids), status, strings.Join(parts, " "))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of ids to claim")
	return cmd
}

func printBatch(cmd *cobra.Command, ctx *commandContext, resp api.BatchResponse) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, resp)
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(resp.Results))
	for _, o := range resp.Results {
		rows = append(rows, []string{fmt.Sprint(o.ID), colorizeOutcome(o.Result, colorize), o.Message})
	}
	fmt.Fprint(out, renderTable(out, []string{"ID", "Result", "Message"}, rows, []columnAlignment{alignRight}))
	c := resp.Counts
	fmt.Fprintf(out, "%d processed: %d success, %d conflict, %d not found, %d errors\n",
		c.Total, c.Success, c.Conflict, c.NotFound, c.Errors)
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", arg)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := parseID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
