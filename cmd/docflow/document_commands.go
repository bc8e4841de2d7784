package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/document"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var author, title, initiator string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *api.DocumentService) error {
				doc, err := svc.Create(cmd.Context(), author, title, initiator)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromDocument(doc))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (id %d)\n", doc.Number, doc.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "Document author")
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&initiator, "initiator", "cli", "Identity recorded in logs")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document with its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(svc *api.DocumentService) error {
				doc, history, err := svc.Get(cmd.Context(), id)
				if err != nil {
					return notFoundHint(err, id)
				}
				dto := api.FromDocumentWithHistory(doc, history)
				if ctx.jsonOutput() {
					return writeJSON(cmd, dto)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s\n", dto.Number, dto.Title)
				fmt.Fprintf(out, "  Author:  %s\n", dto.Author)
				fmt.Fprintf(out, "  Status:  %s (version %d)\n", dto.Status, dto.Version)
				fmt.Fprintf(out, "  Created: %s\n", dto.CreatedAt)
				fmt.Fprintf(out, "  Updated: %s\n", dto.UpdatedAt)
				if len(dto.History) > 0 {
					fmt.Fprint(out, renderHistory(out, dto.History))
				}
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the audit trail of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(svc *api.DocumentService) error {
				history, err := svc.GetHistory(cmd.Context(), id)
				if err != nil {
					return notFoundHint(err, id)
				}
				entries := api.FromHistory(history)
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No history yet")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderHistory(cmd.OutOrStdout(), entries))
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "list <id>...",
		Short: "List documents by id, newest first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(svc *api.DocumentService) error {
				result, err := svc.GetByIDs(cmd.Context(), ids, document.PageRequest{Page: page, Size: size})
				if err != nil {
					return err
				}
				return printPage(cmd, ctx, api.FromPage(result))
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&size, "size", document.DefaultPageSize, "Page size")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var status, author, from, to string
	var page, size int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search documents by status, author, and creation date",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := document.SearchFilter{Author: strings.TrimSpace(author)}
			if status != "" {
				parsed, ok := document.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = parsed
			}
			var err error
			if filter.CreatedFrom, err = parseDateFlag(from, false); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if filter.CreatedTo, err = parseDateFlag(to, true); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			return ctx.withService(cmd, func(svc *api.DocumentService) error {
				result, err := svc.Search(cmd.Context(), filter, document.PageRequest{Page: page, Size: size})
				if err != nil {
					return err
				}
				return printPage(cmd, ctx, api.FromPage(result))
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "DRAFT, SUBMITTED, or APPROVED")
	cmd.Flags().StringVar(&author, "author", "", "Case-insensitive author substring")
	cmd.Flags().StringVar(&from, "from", "", "Created on or after (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "Created on or before (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&size, "size", document.DefaultPageSize, "Page size")
	return cmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *api.DocumentService) error {
				stats, err := svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				resp := api.FromStats(stats)
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				rows := make([][]string, 0, len(resp.Counts)+1)
				for _, status := range api.SortedStatuses(resp.Counts) {
					rows = append(rows, []string{status, fmt.Sprint(resp.Counts[status])})
				}
				rows = append(rows, []string{"TOTAL", fmt.Sprint(resp.Total)})
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderTable(out, []string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func printPage(cmd *cobra.Command, ctx *commandContext, page api.DocumentPage) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, page)
	}
	out := cmd.OutOrStdout()
	if len(page.Items) == 0 {
		fmt.Fprintln(out, "No documents found")
		return nil
	}
	rows := make([][]string, 0, len(page.Items))
	for _, doc := range page.Items {
		rows = append(rows, []string{
			fmt.Sprint(doc.ID), doc.Number, doc.Status, doc.Author, doc.Title, doc.CreatedAt,
		})
	}
	fmt.Fprint(out, renderTable(out,
		[]string{"ID", "Number", "Status", "Author", "Title", "Created"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	fmt.Fprintf(out, "Page %d of %d (%d documents)\n", page.Page+1, max(page.TotalPages, 1), page.TotalItems)
	return nil
}

func renderHistory(out io.Writer, entries []api.HistoryEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Action, e.PerformedBy, e.Comment, e.CreatedAt})
	}
	return renderTable(out, []string{"Action", "By", "Comment", "At"}, rows, nil)
}

func notFoundHint(err error, id int64) error {
	if errors.Is(err, document.ErrNotFound) {
		return fmt.Errorf("document %d not found", id)
	}
	return err
}

func parseDateFlag(value string, upper bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", value)
	}
	if upper {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}
