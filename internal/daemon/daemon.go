package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"docflow/internal/api"
	"docflow/internal/config"
	"docflow/internal/logging"
	"docflow/internal/workflow"
)

// Daemon coordinates the background workers and the HTTP API and enforces
// single-instance execution per state directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    api.Store
	service  *api.DocumentService
	workflow *workflow.Manager
	server   *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StoreDriver  string
	DatabasePath string
	LockFilePath string
	APIAddress   string
	Workflow     workflow.StatusSummary
}

// New constructs a daemon with initialized dependencies. wf may be nil when
// the background workers are disabled.
func New(cfg *config.Config, store api.Store, svc *api.DocumentService, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || svc == nil {
		return nil, errors.New("daemon requires config, store, and document service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		service:  svc,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	server, err := newAPIServer(cfg.API.Bind, svc, logger)
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start acquires the daemon lock, launches the workers, and opens the API listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another docflow daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.workflow != nil {
		if err := d.workflow.Start(d.ctx); err != nil {
			d.abortStart()
			return fmt.Errorf("start workflow: %w", err)
		}
	}
	if err := d.server.start(d.ctx); err != nil {
		if d.workflow != nil {
			d.workflow.Stop()
		}
		d.abortStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("docflow daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.address()),
		logging.Bool("workers", d.workflow != nil),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing, closes the listener, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	if d.workflow != nil {
		d.workflow.Stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("docflow daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the bound API address once started.
func (d *Daemon) Addr() string {
	return d.server.address()
}

// Status reports runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StoreDriver:  d.cfg.Store.Driver,
		LockFilePath: d.lockPath,
		APIAddress:   d.server.address(),
	}
	if d.cfg.Store.Driver == config.DriverSQLite {
		status.DatabasePath = d.cfg.DatabasePath()
	}
	if d.workflow != nil {
		status.Workflow = d.workflow.Status(ctx)
	}
	return status
}
