package scheduler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vmunix/catarr/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestQueue(t *testing.T) *queue.Store {
	t.Helper()
	return queue.NewStore(filepath.Join(t.TempDir(), "queue.json"), testLogger())
}

// trackingImporter records call timing and peak concurrency.
type trackingImporter struct {
	mu          sync.Mutex
	delay       time.Duration
	failIDs     map[string]bool
	inflight    int
	maxInflight int
	starts      map[string]time.Time
	ends        map[string]time.Time
	order       []string
}

func newTrackingImporter(delay time.Duration) *trackingImporter {
	return &trackingImporter{
		delay:  delay,
		starts: make(map[string]time.Time),
		ends:   make(map[string]time.Time),
	}
}

func (f *trackingImporter) Import(ctx context.Context, itemID, collectionID string) error {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.starts[itemID] = time.Now()
	f.order = append(f.order, itemID)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inflight--
	f.ends[itemID] = time.Now()
	fail := f.failIDs[itemID]
	f.mu.Unlock()

	if fail {
		return errImportFailed
	}
	return nil
}

func (f *trackingImporter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

// gateImporter blocks every import until the gate is opened and signals the
// first start, so a test can interleave store operations with a live drain.
type gateImporter struct {
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func newGateImporter() *gateImporter {
	return &gateImporter{
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
}

func (g *gateImporter) Import(ctx context.Context, itemID, collectionID string) error {
	g.once.Do(func() { close(g.started) })
	<-g.gate
	return nil
}
