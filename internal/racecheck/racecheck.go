// Package racecheck fires many simultaneous transition attempts at a single
// document to verify that exactly one of them wins.
//
// Every run owns its own task group; no counters or pools outlive a call.
package racecheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"docflow/internal/document"
)

const (
	MaxThreads  = 50
	MaxAttempts = 100
)

// Executor runs one transition attempt.
type Executor interface {
	Execute(ctx context.Context, id int64, t document.Transition, actor string) document.Outcome
}

// Reader loads the final document state.
type Reader interface {
	GetByID(ctx context.Context, id int64) (*document.Document, error)
}

// Options configures a run.
type Options struct {
	// Threads bounds how many attempts run at once.
	Threads int
	// Attempts is the total number of transition attempts.
	Attempts int
	// Transition defaults to document.Approve.
	Transition document.Transition
	// ActorPrefix is suffixed with the attempt index.
	ActorPrefix string
}

// Report summarizes a run.
type Report struct {
	DocumentID  int64
	Outcomes    []document.Outcome
	Counts      document.Counts
	FinalStatus document.Status
	Elapsed     time.Duration
}

// Validate checks the configured bounds.
func (o Options) Validate() error {
	if o.Threads < 1 || o.Threads > MaxThreads {
		return fmt.Errorf("threads must be between 1 and %d", MaxThreads)
	}
	if o.Attempts < 1 || o.Attempts > MaxAttempts {
		return fmt.Errorf("attempts must be between 1 and %d", MaxAttempts)
	}
	return nil
}

// Run launches opts.Attempts concurrent attempts against id, at most
// opts.Threads at a time, released together, and reports the outcome counts
// and the document's final status.
func Run(ctx context.Context, exec Executor, reader Reader, id int64, opts Options) (Report, error) {
	if exec == nil || reader == nil {
		return Report{}, errors.New("racecheck: executor and reader are required")
	}
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}
	if opts.Transition.Name == "" {
		opts.Transition = document.Approve
	}
	if opts.ActorPrefix == "" {
		opts.ActorPrefix = "concurrent-tester-"
	}
	if _, err := reader.GetByID(ctx, id); err != nil {
		return Report{}, err
	}

	outcomes := make([]document.Outcome, opts.Attempts)
	start := make(chan struct{})
	began := time.Now()

	// Release once the first wave is parked so attempts genuinely overlap.
	launched := make(chan struct{}, opts.Attempts)
	wave := min(opts.Threads, opts.Attempts)
	go func() {
		for i := 0; i < wave; i++ {
			<-launched
		}
		close(start)
	}()

	var g errgroup.Group
	g.SetLimit(opts.Threads)
	for i := 0; i < opts.Attempts; i++ {
		g.Go(func() error {
			launched <- struct{}{}
			<-start
			outcomes[i] = exec.Execute(ctx, id, opts.Transition, fmt.Sprintf("%s%d", opts.ActorPrefix, i))
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		DocumentID: id,
		Outcomes:   outcomes,
		Counts:     document.Tally(outcomes),
		Elapsed:    time.Since(began),
	}
	final, err := reader.GetByID(ctx, id)
	if err != nil {
		return report, fmt.Errorf("racecheck: read final state: %w", err)
	}
	report.FinalStatus = final.Status
	return report, nil
}
