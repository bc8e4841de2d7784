package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/config"
	"docflow/internal/docstore"
	"docflow/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the state directory, store, and numbering backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.cliLogger()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var pinger preflight.Pinger
			store, openErr := api.OpenStore(cmd.Context(), cfg, logger)
			if openErr == nil {
				defer store.Close()
				pinger = store
			}
			results := preflight.RunAll(cmd.Context(), cfg, pinger, logger)
			if openErr != nil {
				results = append(results, preflight.Result{Name: "Store open", Detail: openErr.Error()})
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, results)
			}
			fmt.Fprintln(out, "docflow doctor")
			for _, r := range results {
				fmt.Fprintln(out, renderCheckLine(r.Name, r.Passed, r.Detail, colorize))
			}
			if cfg.Store.Driver == config.DriverSQLite && openErr == nil {
				printSQLiteHealth(cmd, store, colorize)
			}
			if !preflight.Passed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

func printSQLiteHealth(cmd *cobra.Command, store api.Store, colorize bool) {
	sqlite, ok := store.(*docstore.Store)
	if !ok {
		return
	}
	health, err := sqlite.CheckHealth(cmd.Context())
	out := cmd.OutOrStdout()
	if err != nil {
		fmt.Fprintln(out, renderCheckLine("Database integrity", false, err.Error(), colorize))
		return
	}
	detail := "ok"
	if !health.IntegrityCheck {
		detail = health.Error
	}
	fmt.Fprintln(out, renderCheckLine("Database integrity", health.IntegrityCheck, detail, colorize))
	fmt.Fprintln(out, renderCheckLine("Schema version", health.SchemaVersion != "", health.SchemaVersion, colorize))
	fmt.Fprintln(out, renderCheckLine("Documents", true, fmt.Sprint(health.TotalDocuments), colorize))
}
