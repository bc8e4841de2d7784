package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docflow/internal/api"
	"docflow/internal/config"
	"docflow/internal/daemon"
	"docflow/internal/logging"
	"docflow/internal/testsupport"
	"docflow/internal/workflow"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	store, err := api.OpenStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	svc := api.NewDocumentService(store, api.ServiceOptionsFromConfig(cfg, logger))
	var wf *workflow.Manager
	if cfg.Worker.Enabled {
		wf = workflow.NewManager(cfg, svc, logger)
	}
	d, err := daemon.New(cfg, store, svc, logger, wf)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, d.Start(ctx))
	status := d.Status(ctx)
	require.True(t, status.Running)
	require.True(t, status.Workflow.Running)
	require.NotEmpty(t, status.APIAddress)
	require.Equal(t, cfg.LockPath(), status.LockFilePath)
	require.Equal(t, cfg.DatabasePath(), status.DatabasePath)

	require.Error(t, d.Start(ctx), "second start should fail")

	d.Stop()
	status = d.Status(ctx)
	require.False(t, status.Running)
	require.Empty(t, status.APIAddress)
}

func TestDaemonSingleInstancePerStateDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkersDisabled())
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	require.NoError(t, first.Start(ctx))

	err := second.Start(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already running")

	first.Stop()
	require.NoError(t, second.Start(ctx))
	second.Stop()
}

func TestDaemonServesAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkersDisabled())
	d := newDaemon(t, cfg)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	base := "http://" + d.Addr()
	resp, err := http.Post(base+"/api/documents", "application/json",
		strings.NewReader(`{"author":"Alice","title":"Plan","initiator":"alice"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	var created api.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, "DRAFT", created.Status)
	require.Equal(t, "DOC-0000001", created.Number)

	statsResp, err := http.Get(base + "/api/stats")
	require.NoError(t, err)
	defer statsResp.Body.Close()
	var stats api.StatsResponse
	require.NoError(t, json.NewDecoder(statsResp.Body).Decode(&stats))
	require.Equal(t, int64(1), stats.Counts["DRAFT"])
	require.Equal(t, int64(1), stats.Total)
}
