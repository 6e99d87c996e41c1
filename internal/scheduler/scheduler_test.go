package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	_ "modernc.org/sqlite"

	"github.com/vmunix/catarr/internal/events"
	"github.com/vmunix/catarr/internal/history"
	"github.com/vmunix/catarr/internal/importer/mocks"
	"github.com/vmunix/catarr/internal/migrations"
	"github.com/vmunix/catarr/internal/queue"
)

var errImportFailed = errors.New("import failed")

func TestProcessNext_EmptyQueue(t *testing.T) {
	store := newTestQueue(t)
	s := New(store, newTrackingImporter(0), nil, nil, Config{}, testLogger())

	assert.False(t, s.ProcessNext(context.Background()))
}

func TestProcessNext_DrainsMovieCatalog(t *testing.T) {
	store := newTestQueue(t)
	store.Enqueue("cat-1", "coll-9", []string{"a", "b", "c"}, queue.MediaTypeMovie, "Action")

	ctrl := gomock.NewController(t)
	imp := mocks.NewMockImporter(ctrl)
	imp.EXPECT().Import(gomock.Any(), "a", "coll-9").Return(nil)
	imp.EXPECT().Import(gomock.Any(), "b", "coll-9").Return(nil)
	imp.EXPECT().Import(gomock.Any(), "c", "coll-9").Return(nil)

	s := New(store, imp, nil, nil, Config{MaxParallelMovieImports: 2}, testLogger())
	assert.True(t, s.ProcessNext(context.Background()))

	assert.Nil(t, store.Get("cat-1"), "completed catalog must be removed")
	assert.False(t, store.HasPending())
}

func TestProcessNext_FailuresStillComplete(t *testing.T) {
	store := newTestQueue(t)
	store.Enqueue("cat-1", "coll-9", []string{"good", "bad", "ugly"}, queue.MediaTypeMovie, "Western")

	imp := newTrackingImporter(0)
	imp.failIDs = map[string]bool{"bad": true, "ugly": true}

	bus := events.NewBus(testLogger())
	defer bus.Close()
	completed := bus.Subscribe(events.TypeCatalogCompleted, 1)

	s := New(store, imp, nil, bus, Config{MaxParallelMovieImports: 1}, testLogger())
	require.True(t, s.ProcessNext(context.Background()))

	// Failed items are processed and removed, never retried in-pass: the
	// catalog completes regardless of success rate.
	assert.Nil(t, store.Get("cat-1"))
	assert.Equal(t, 3, imp.callCount())

	select {
	case e := <-completed:
		done := e.(events.CatalogCompleted)
		assert.Equal(t, 1, done.SuccessCount)
		assert.Equal(t, 2, done.FailedCount)
	case <-time.After(time.Second):
		t.Fatal("no completion event")
	}
}

func TestProcessNext_MovieConcurrencyBound(t *testing.T) {
	store := newTestQueue(t)
	store.Enqueue("cat-1", "coll-9", []string{"a", "b", "c", "d", "e"}, queue.MediaTypeMovie, "Bulk")

	imp := newTrackingImporter(40 * time.Millisecond)
	s := New(store, imp, nil, nil, Config{MaxParallelMovieImports: 2}, testLogger())
	require.True(t, s.ProcessNext(context.Background()))

	assert.Equal(t, 5, imp.callCount())
	assert.LessOrEqual(t, imp.maxInflight, 2, "at most 2 movie imports in flight")
	assert.Equal(t, 2, imp.maxInflight, "pool should actually run in parallel")
}

func TestProcessNext_SeriesSequentialWithDelay(t *testing.T) {
	const delay = 60 * time.Millisecond

	store := newTestQueue(t)
	store.Enqueue("cat-1", "coll-9", []string{"s1", "s2", "s3"}, queue.MediaTypeSeries, "Shows")

	imp := newTrackingImporter(10 * time.Millisecond)
	s := New(store, imp, nil, nil, Config{
		MaxParallelMovieImports: 4,
		SeriesImportDelay:       delay,
	}, testLogger())
	require.True(t, s.ProcessNext(context.Background()))

	assert.Equal(t, 1, imp.maxInflight, "series imports must never overlap")
	assert.Equal(t, []string{"s1", "s2", "s3"}, imp.order)

	// At least the configured delay between the end of one item and the
	// start of the next.
	gap1 := imp.starts["s2"].Sub(imp.ends["s1"])
	gap2 := imp.starts["s3"].Sub(imp.ends["s2"])
	assert.GreaterOrEqual(t, gap1, delay, "gap s1->s2")
	assert.GreaterOrEqual(t, gap2, delay, "gap s2->s3")

	assert.Nil(t, store.Get("cat-1"))
}

func TestProcessNext_OneCatalogPerInvocation(t *testing.T) {
	store := newTestQueue(t)
	store.Enqueue("old", "c", []string{"a"}, queue.MediaTypeMovie, "first")
	time.Sleep(2 * time.Millisecond)
	store.Enqueue("new", "c", []string{"b"}, queue.MediaTypeMovie, "second")

	imp := newTrackingImporter(0)
	s := New(store, imp, nil, nil, Config{MaxParallelMovieImports: 1}, testLogger())

	require.True(t, s.ProcessNext(context.Background()))
	assert.Nil(t, store.Get("old"), "oldest catalog drains first")
	assert.NotNil(t, store.Get("new"), "one catalog per invocation")

	require.True(t, s.ProcessNext(context.Background()))
	assert.False(t, store.HasPending())
	assert.False(t, s.ProcessNext(context.Background()))
}

func TestProcessNext_TimeoutLeavesCatalogQueued(t *testing.T) {
	store := newTestQueue(t)
	store.Enqueue("cat-1", "coll-9", []string{"a", "b", "c", "d"}, queue.MediaTypeSeries, "Slow")

	imp := newTrackingImporter(50 * time.Millisecond)
	s := New(store, imp, nil, nil, Config{
		SeriesImportDelay:    50 * time.Millisecond,
		CatalogImportTimeout: 80 * time.Millisecond,
	}, testLogger())
	require.True(t, s.ProcessNext(context.Background()))

	c := store.Get("cat-1")
	require.NotNil(t, c, "timed-out catalog stays queued for a later invocation")
	assert.NotEmpty(t, c.PendingIDs)

	// Everything attempted was checkpointed; pending matches what was not.
	assert.Equal(t, 4, c.TotalCount())
	assert.Equal(t, imp.callCount(), c.ProcessedCount)
}

func TestProcessNext_ResumeContinuesCounters(t *testing.T) {
	store := newTestQueue(t)
	store.Enqueue("cat-1", "coll-9", []string{"a", "b", "c", "d", "e"}, queue.MediaTypeMovie, "Resume")

	// Simulate a prior invocation having processed two items.
	store.UpdateProgress("cat-1", 2, 1, 1)
	store.RemoveCompletedID("cat-1", "a")
	store.RemoveCompletedID("cat-1", "b")

	imp := newTrackingImporter(0)
	s := New(store, imp, nil, nil, Config{MaxParallelMovieImports: 2}, testLogger())

	bus := events.NewBus(testLogger())
	defer bus.Close()
	completed := bus.Subscribe(events.TypeCatalogCompleted, 1)
	s.bus = bus

	require.True(t, s.ProcessNext(context.Background()))
	assert.Equal(t, 3, imp.callCount(), "only remaining items are attempted")

	e := <-completed
	done := e.(events.CatalogCompleted)
	assert.Equal(t, 4, done.SuccessCount, "counters continue from the checkpoint")
	assert.Equal(t, 1, done.FailedCount)
}

func TestProcessNext_ReenqueueMidDrainDiscardsOldProgress(t *testing.T) {
	store := newTestQueue(t)
	store.Enqueue("cat-1", "coll-9", []string{"a", "b", "c"}, queue.MediaTypeMovie, "First")

	imp := newGateImporter()
	s := New(store, imp, nil, nil, Config{MaxParallelMovieImports: 1}, testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ProcessNext(context.Background())
	}()

	// Re-enqueue while the drain is blocked inside its first item: the
	// request-handler side does not wait for the background processor.
	<-imp.started
	store.Enqueue("cat-1", "coll-9", []string{"x", "y"}, queue.MediaTypeMovie, "Second")
	close(imp.gate)
	<-done

	// The old drain's checkpoints must leave the fresh record untouched.
	c := store.Get("cat-1")
	require.NotNil(t, c)
	assert.Equal(t, []string{"x", "y"}, c.PendingIDs)
	assert.Equal(t, 0, c.ProcessedCount)
	assert.Equal(t, 0, c.SuccessCount)
	assert.Equal(t, 0, c.FailedCount)
	assert.Equal(t, 2, c.TotalCount())
}

func TestProcessNext_RecordsHistory(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err)
	hist := history.NewStore(db)

	store := newTestQueue(t)
	store.Enqueue("cat-1", "coll-9", []string{"ok", "broken"}, queue.MediaTypeMovie, "Mixed")

	imp := newTrackingImporter(0)
	imp.failIDs = map[string]bool{"broken": true}

	s := New(store, imp, hist, nil, Config{MaxParallelMovieImports: 1}, testLogger())
	require.True(t, s.ProcessNext(context.Background()))

	entries, err := hist.List(history.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byItem := map[string]*history.Entry{}
	for _, e := range entries {
		byItem[e.ItemID] = e
		assert.Equal(t, "cat-1", e.CatalogID)
		assert.NotEmpty(t, e.RunID)
	}
	assert.True(t, byItem["ok"].Success)
	assert.False(t, byItem["broken"].Success)
	assert.Equal(t, errImportFailed.Error(), byItem["broken"].Error)
}

func TestProcessNext_InvariantHeldDuringDrain(t *testing.T) {
	store := newTestQueue(t)
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	store.Enqueue("cat-1", "coll-9", ids, queue.MediaTypeMovie, "Invariant")

	imp := newTrackingImporter(5 * time.Millisecond)
	s := New(store, imp, nil, nil, Config{MaxParallelMovieImports: 3}, testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ProcessNext(context.Background())
	}()

	// Observe the store mid-drain: the counter invariant must hold at every
	// point, even while the pool checkpoints out of submission order.
	for {
		select {
		case <-done:
			assert.Nil(t, store.Get("cat-1"))
			return
		default:
		}
		if c := store.Get("cat-1"); c != nil {
			assert.Equal(t, len(ids), c.TotalCount(),
				"processed + pending must equal the original total")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
