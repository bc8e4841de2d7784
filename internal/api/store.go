package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"docflow/internal/config"
	"docflow/internal/docstore"
	"docflow/internal/document"
	"docflow/internal/lifecycle"
	"docflow/internal/pgstore"
	"docflow/internal/sequence"
)

// Store is everything the service needs from persistence.
type Store interface {
	lifecycle.Store
	Create(ctx context.Context, author, title string) (*document.Document, error)
	GetByIDs(ctx context.Context, ids []int64, page document.PageRequest) (document.Page, error)
	Search(ctx context.Context, filter document.SearchFilter, page document.PageRequest) (document.Page, error)
	History(ctx context.Context, id int64) ([]document.HistoryEntry, error)
	Stats(ctx context.Context) (map[document.Status]int64, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*docstore.Store)(nil)
	_ Store = (*pgstore.Store)(nil)
)

type storeWithCloser struct {
	Store
	extra io.Closer
}

func (s storeWithCloser) Close() error {
	return errors.Join(s.Store.Close(), s.extra.Close())
}

// OpenStore opens the configured store driver with the configured numbering
// backend. The caller owns Close.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	var seq *sequence.Redis
	if cfg.Numbering.Backend == config.NumberingRedis {
		r, err := sequence.OpenRedis(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open numbering sequence: %w", err)
		}
		seq = r
	}

	var (
		store Store
		err   error
	)
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		opts := []pgstore.Option{pgstore.WithLogger(logger)}
		if seq != nil {
			opts = append(opts, pgstore.WithSequence(seq))
		}
		store, err = pgstore.Open(ctx, cfg, opts...)
	default:
		opts := []docstore.Option{docstore.WithLogger(logger)}
		if seq != nil {
			opts = append(opts, docstore.WithSequence(seq))
		}
		store, err = docstore.Open(cfg, opts...)
	}
	if err != nil {
		if seq != nil {
			_ = seq.Close()
		}
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	if seq != nil {
		return storeWithCloser{Store: store, extra: seq}, nil
	}
	return store, nil
}
