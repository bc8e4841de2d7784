// Package generator bulk-creates documents through the HTTP API.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"docflow/internal/api"
	"docflow/internal/config"
	"docflow/internal/logging"
)

const progressEvery = 100

// Options controls a generation run.
type Options struct {
	Count         int
	BaseURL       string
	RatePerSecond float64
	Author        string
	Initiator     string
	Client        *http.Client
	Logger        *slog.Logger
}

// OptionsFromConfig seeds options from the [generator] section.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Count:         cfg.Generator.Count,
		BaseURL:       cfg.Generator.BaseURL,
		RatePerSecond: cfg.Generator.RatePerSecond,
		Author:        cfg.Generator.Author,
		Initiator:     cfg.Generator.Initiator,
	}
}

// Summary reports a finished run.
type Summary struct {
	Requested int
	Created   int
	Errors    int
	Elapsed   time.Duration
}

// Generator posts create requests at a bounded rate.
type Generator struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New validates opts and builds a generator.
func New(opts Options) (*Generator, error) {
	if opts.Count <= 0 {
		return nil, errors.New("generator: count must be positive")
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("generator: base url is required")
	}
	if strings.TrimSpace(opts.Author) == "" || strings.TrimSpace(opts.Initiator) == "" {
		return nil, errors.New("generator: author and initiator are required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	burst := 1
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		burst = max(1, int(opts.RatePerSecond))
	}
	return &Generator{
		opts:    opts,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logging.NewComponentLogger(opts.Logger, "generator"),
	}, nil
}

// Run creates Count documents titled "Document #i". Individual request
// failures are counted and logged; only context cancellation stops the run.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	summary := Summary{Requested: g.opts.Count}
	began := time.Now()
	g.logger.Info("generation started",
		logging.Int("count", g.opts.Count),
		logging.String("url", g.opts.BaseURL),
		logging.Any("rate_per_second", g.opts.RatePerSecond),
	)

	for i := 1; i <= g.opts.Count; i++ {
		if err := g.limiter.Wait(ctx); err != nil {
			summary.Elapsed = time.Since(began)
			return summary, fmt.Errorf("generator: %w", err)
		}
		if err := g.create(ctx, i); err != nil {
			if ctx.Err() != nil {
				summary.Elapsed = time.Since(began)
				return summary, fmt.Errorf("generator: %w", ctx.Err())
			}
			summary.Errors++
			logging.WarnWithContext(g.logger, "document creation failed", "generator_create_failed",
				logging.Int("index", i),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify the daemon is running at base_url"),
			)
		} else {
			summary.Created++
		}

		if i%progressEvery == 0 || i == g.opts.Count {
			g.logger.Info("generation progress",
				logging.Int("done", i),
				logging.Int("count", g.opts.Count),
				logging.Int("success", summary.Created),
				logging.Int("errors", summary.Errors),
			)
		}
	}

	summary.Elapsed = time.Since(began)
	g.logger.Info("generation completed",
		logging.Int("created", summary.Created),
		logging.Int("count", summary.Requested),
		logging.Int("errors", summary.Errors),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func (g *Generator) create(ctx context.Context, i int) error {
	body, err := json.Marshal(api.CreateRequest{
		Author:    g.opts.Author,
		Title:     fmt.Sprintf("Document #%d", i),
		Initiator: g.opts.Initiator,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.opts.BaseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
