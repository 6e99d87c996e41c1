// Package server provides the background import runner.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/catarr/internal/events"
	"github.com/vmunix/catarr/internal/history"
	"github.com/vmunix/catarr/internal/queue"
)

// CatalogProcessor drives one catalog drain per invocation.
type CatalogProcessor interface {
	// ProcessNext drains the oldest pending catalog and reports whether any
	// work was selected.
	ProcessNext(ctx context.Context) bool
}

// Config for the runner.
type Config struct {
	// PollInterval is how often the queue is checked for work independent of
	// enqueue kicks.
	PollInterval time.Duration
	// HistoryRetention bounds how long import history rows are kept. Zero
	// disables pruning.
	HistoryRetention time.Duration
}

// Runner owns the background processing loop: it reacts to enqueue events,
// polls on a timer, and guarantees that only one scheduler invocation is
// active at a time.
type Runner struct {
	store     *queue.Store
	processor CatalogProcessor
	hist      *history.Store // nil disables pruning
	bus       *events.Bus
	cfg       Config
	log       *slog.Logger

	// processing is the single processing lock of the import pipeline. Two
	// concurrent invocations would drain the same catalog's pending list
	// and corrupt its counters.
	processing sync.Mutex
}

// NewRunner creates a runner.
func NewRunner(store *queue.Store, processor CatalogProcessor, hist *history.Store, bus *events.Bus, cfg Config, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	return &Runner{
		store:     store,
		processor: processor,
		hist:      hist,
		bus:       bus,
		cfg:       cfg,
		log:       log.With("component", "runner"),
	}
}

// Run starts the processing loop and blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	kicks := r.bus.Subscribe(events.TypeCatalogEnqueued, 16)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Resume any work a previous process left behind before waiting for
		// triggers.
		if r.store.HasPending() {
			r.log.Info("resuming queued catalogs from snapshot", "pending", r.store.PendingCount())
			r.drain(ctx)
		}

		ticker := time.NewTicker(r.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				r.drain(ctx)
			case _, ok := <-kicks:
				if !ok {
					return nil
				}
				r.drain(ctx)
			}
		}
	})

	if r.hist != nil && r.cfg.HistoryRetention > 0 {
		g.Go(func() error {
			return r.pruneLoop(ctx)
		})
	}

	return g.Wait()
}

// drain runs scheduler invocations back to back until the queue is empty.
// TryLock makes overlapping triggers a no-op instead of a second drain.
func (r *Runner) drain(ctx context.Context) {
	if !r.processing.TryLock() {
		r.log.Debug("drain already active, skipping trigger")
		return
	}
	defer r.processing.Unlock()

	for ctx.Err() == nil {
		if !r.processor.ProcessNext(ctx) {
			return
		}
	}
}

func (r *Runner) pruneLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-r.cfg.HistoryRetention)
			n, err := r.hist.Prune(cutoff)
			if err != nil {
				r.log.Error("history prune failed", "error", err)
				continue
			}
			if n > 0 {
				r.log.Debug("history pruned", "removed", n)
			}
		}
	}
}
