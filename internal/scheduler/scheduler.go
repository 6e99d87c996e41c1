// Package scheduler drives queued catalogs to completion, one catalog per
// invocation, under the media-type concurrency policy.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vmunix/catarr/internal/events"
	"github.com/vmunix/catarr/internal/history"
	"github.com/vmunix/catarr/internal/importer"
	"github.com/vmunix/catarr/internal/queue"
)

// Config holds the throttling rules for a drain.
type Config struct {
	// MaxParallelMovieImports bounds the worker pool for movie catalogs.
	MaxParallelMovieImports int
	// SeriesImportDelay is the pause between one series item finishing and
	// the next starting. Series fan out into many episode-level calls on the
	// media server, so they are never imported concurrently or back-to-back.
	SeriesImportDelay time.Duration
	// CatalogImportTimeout bounds a single drain. Zero means no limit. On
	// expiry the drain stops issuing items, lets in-flight ones finish, and
	// leaves the catalog queued for a later invocation.
	CatalogImportTimeout time.Duration
}

// Scheduler selects the oldest queued catalog and drains its item list,
// checkpointing progress to the store after every item.
type Scheduler struct {
	store    *queue.Store
	importer importer.Importer
	history  *history.Store // nil disables history recording
	bus      *events.Bus    // nil disables event publishing
	cfg      Config
	log      *slog.Logger
}

// New creates a scheduler.
func New(store *queue.Store, imp importer.Importer, hist *history.Store, bus *events.Bus, cfg Config, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxParallelMovieImports < 1 {
		cfg.MaxParallelMovieImports = 1
	}
	return &Scheduler{
		store:    store,
		importer: imp,
		history:  hist,
		bus:      bus,
		cfg:      cfg,
		log:      log.With("component", "scheduler"),
	}
}

// progress carries the cumulative counters for one catalog across a drain,
// seeded from the record so a resumed drain continues the old counts.
type progress struct {
	mu        sync.Mutex
	processed int
	success   int
	failed    int
}

// ProcessNext drains the oldest pending catalog. It returns false when the
// queue is empty and no work was selected. Callers must not run two
// invocations concurrently; the store alone does not defend against it.
func (s *Scheduler) ProcessNext(ctx context.Context) bool {
	cat := s.store.PeekNext()
	if cat == nil {
		return false
	}

	runID := uuid.NewString()
	log := s.log.With("run_id", runID, "catalog_id", cat.CatalogID)

	if s.cfg.CatalogImportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CatalogImportTimeout)
		defer cancel()
	}

	log.Info("catalog drain started",
		"name", cat.CatalogName,
		"media_type", cat.MediaType,
		"pending", len(cat.PendingIDs),
		"processed", cat.ProcessedCount,
	)

	p := &progress{
		processed: cat.ProcessedCount,
		success:   cat.SuccessCount,
		failed:    cat.FailedCount,
	}

	if cat.MediaType == queue.MediaTypeSeries {
		s.drainSeries(ctx, cat, p, runID, log)
	} else {
		s.drainMovies(ctx, cat, p, runID, log)
	}

	p.mu.Lock()
	success, failed := p.success, p.failed
	p.mu.Unlock()

	if remaining := s.store.Get(cat.CatalogID); remaining == nil {
		log.Info("catalog drain complete", "success", success, "failed", failed)
		if s.bus != nil {
			s.bus.Publish(events.NewCatalogCompleted(cat.CatalogID, success, failed))
		}
	} else {
		log.Info("catalog drain interrupted, remains queued",
			"remaining", len(remaining.PendingIDs))
	}
	return true
}

// drainMovies processes the pending list with a bounded worker pool.
// Completion order may differ from submission order; only the remaining set
// is guaranteed, not FIFO checkpoints.
func (s *Scheduler) drainMovies(ctx context.Context, cat *queue.QueuedCatalog, p *progress, runID string, log *slog.Logger) {
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxParallelMovieImports)

	for _, itemID := range cat.PendingIDs {
		if ctx.Err() != nil {
			log.Warn("drain timed out, not issuing further items", "next_item", itemID)
			break
		}
		g.Go(func() error {
			s.importOne(ctx, cat, p, runID, itemID, log)
			return nil
		})
	}
	_ = g.Wait()
}

// drainSeries processes the pending list strictly one at a time with a fixed
// delay between items.
func (s *Scheduler) drainSeries(ctx context.Context, cat *queue.QueuedCatalog, p *progress, runID string, log *slog.Logger) {
	for i, itemID := range cat.PendingIDs {
		if i > 0 && s.cfg.SeriesImportDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.SeriesImportDelay):
			}
		}
		if ctx.Err() != nil {
			log.Warn("drain timed out, not issuing further items", "next_item", itemID)
			return
		}
		s.importOne(ctx, cat, p, runID, itemID, log)
	}
}

// importOne runs a single import attempt and checkpoints the outcome. A
// failed import still counts as processed and is removed from the pending
// list; it is not retried within this pass.
func (s *Scheduler) importOne(ctx context.Context, cat *queue.QueuedCatalog, p *progress, runID, itemID string, log *slog.Logger) {
	if ctx.Err() != nil {
		// Timed out before this worker started; the item stays pending.
		return
	}

	start := time.Now()
	err := s.importer.Import(ctx, itemID, cat.CollectionID)
	duration := time.Since(start)

	// The counters accumulate under p.mu; the store applies them and removes
	// the item in one atomic step so readers never see them disagree.
	p.mu.Lock()
	p.processed++
	if err != nil {
		p.failed++
	} else {
		p.success++
	}
	s.store.Checkpoint(cat.CatalogID, itemID, p.processed, p.success, p.failed)
	p.mu.Unlock()

	if err != nil {
		log.Warn("item import failed", "item_id", itemID, "error", err)
	} else {
		log.Debug("item imported", "item_id", itemID, "duration_ms", duration.Milliseconds())
	}

	if s.history != nil {
		entry := &history.Entry{
			RunID:        runID,
			CatalogID:    cat.CatalogID,
			CatalogName:  cat.CatalogName,
			CollectionID: cat.CollectionID,
			ItemID:       itemID,
			MediaType:    string(cat.MediaType),
			Success:      err == nil,
			Duration:     duration,
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if histErr := s.history.Add(entry); histErr != nil {
			log.Error("record import history failed", "item_id", itemID, "error", histErr)
		}
	}

	if s.bus != nil {
		s.bus.Publish(events.NewItemImported(cat.CatalogID, itemID, err == nil))
	}
}
