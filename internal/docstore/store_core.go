package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"docflow/internal/config"
	"docflow/internal/document"
	"docflow/internal/logging"
	"docflow/internal/sequence"
)

// Store manages document persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	format document.NumberFormat
	seq    sequence.Sequence
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithSequence replaces the built-in counter row with an external sequence.
func WithSequence(seq sequence.Sequence) Option {
	return func(s *Store) { s.seq = seq }
}

// WithNumberFormat sets the document number prefix and width.
func WithNumberFormat(format document.NumberFormat) Option {
	return func(s *Store) { s.format = format }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logging.NewComponentLogger(logger, "docstore") }
}

// WithClock overrides the time source used for created and updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	maxOpenConns            = 8
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// withTx runs fn inside one immediate transaction, retrying the whole unit
// when SQLite reports the database as busy.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

func dataSourceName(path string, busyTimeout time.Duration) string {
	ms := busyTimeout.Milliseconds()
	if ms <= 0 {
		ms = 5000
	}
	return fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)&_txlock=immediate",
		path, ms,
	)
}

// Open initializes or connects to the document database.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("docstore: config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dataSourceName(dbPath, cfg.BusyTimeout()))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	base := []Option{WithNumberFormat(document.NumberFormat{
		Prefix: cfg.Numbering.Prefix,
		Width:  cfg.Numbering.Width,
	})}
	store := New(db, append(base, opts...)...)
	store.path = dbPath

	if err := store.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an already opened database without applying migrations.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		format: document.DefaultNumberFormat,
		logger: logging.NewComponentLogger(nil, "docstore"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the database file path, empty for wrapped connections.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
