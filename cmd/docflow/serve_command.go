package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/daemon"
	"docflow/internal/logging"
	"docflow/internal/preflight"
	"docflow/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var noWorkers bool
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, bind, noWorkers)
		},
	}
	cmd.Flags().BoolVar(&noWorkers, "no-workers", false, "Disable the submit and approve workers")
	cmd.Flags().StringVar(&bind, "bind", "", "Override the API bind address")
	return cmd
}

func runServe(cmdCtx context.Context, ctx *commandContext, bind string, noWorkers bool) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if bind != "" {
		cfg.API.Bind = bind
	}
	if noWorkers {
		cfg.Worker.Enabled = false
	}

	logger, err := logging.NewFromConfig(cfg, true)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := api.OpenStore(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open document store", logging.Error(err))
		return err
	}

	results := preflight.RunAll(signalCtx, cfg, store, logger)
	if !preflight.Passed(results) {
		for _, r := range results {
			if !r.Passed {
				logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
					logging.String("check", r.Name),
					logging.String("detail", r.Detail),
					logging.String(logging.FieldErrorHint, "run docflow doctor for a full report"),
				)
			}
		}
		_ = store.Close()
		return errors.New("preflight checks failed")
	}

	svc := api.NewDocumentService(store, api.ServiceOptionsFromConfig(cfg, logger))
	var wf *workflow.Manager
	if cfg.Worker.Enabled {
		wf = workflow.NewManager(cfg, svc, logger)
	}

	d, err := daemon.New(cfg, store, svc, logger, wf)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("docflow daemon shutting down")
	return nil
}
