package draft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ramonsune/custodia360/internal/clock"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingStore struct {
	mu      sync.Mutex
	inner   domain.DraftStore
	saves   int
	failing bool
}

func (s *countingStore) Save(ctx context.Context, key string, d *domain.FormDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failing {
		return errors.New("quota exceeded")
	}
	return s.inner.Save(ctx, key, d)
}

func (s *countingStore) Load(ctx context.Context, key string) (*domain.FormDraft, bool) {
	return s.inner.Load(ctx, key)
}

func (s *countingStore) Clear(ctx context.Context, key string) error {
	return s.inner.Clear(ctx, key)
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func newAutosaverFixture() (*Autosaver, *countingStore, *clock.FakeClock) {
	clk := clock.NewFakeClock(testStart)
	store := &countingStore{inner: NewMemoryStore(Options{Clock: clk})}
	return NewAutosaver(store, clk, 10*time.Second, 24*time.Hour, zap.NewNop()), store, clk
}

func TestAutosaveSkipsEmptyAndCleanDrafts(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAutosaverFixture()

	a.Track("empty", &domain.FormDraft{AddOns: domain.AddOns{IncludeCommunicationKit: true}})
	a.Tick(ctx)
	assert.Equal(t, 0, store.count())

	a.Track("typed", sampleDraft())
	a.Tick(ctx)
	a.Tick(ctx)
	assert.Equal(t, 1, store.count(), "clean drafts are not rewritten")

	_, ok := store.Load(ctx, domain.DraftKey("typed"))
	assert.True(t, ok)
}

func TestAutosaveTracksACopy(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAutosaverFixture()

	d := sampleDraft()
	a.Track("s", d)
	d.Entity.LegalName = "changed after track"
	a.Tick(ctx)

	out, ok := store.Load(ctx, domain.DraftKey("s"))
	require.True(t, ok)
	assert.Equal(t, "Escuela de Música Sol", out.Entity.LegalName)
}

func TestAutosaveFailureIsRetriedNextTick(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAutosaverFixture()

	store.failing = true
	a.Track("s", sampleDraft())
	assert.NotPanics(t, func() { a.Tick(ctx) })
	_, ok := store.Load(ctx, domain.DraftKey("s"))
	assert.False(t, ok)

	store.failing = false
	a.Tick(ctx)
	_, ok = store.Load(ctx, domain.DraftKey("s"))
	assert.True(t, ok)
}

func TestFlushWritesSynchronously(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAutosaverFixture()

	assert.False(t, a.Flush(ctx, "unknown"))

	a.Track("s", sampleDraft())
	assert.True(t, a.Flush(ctx, "s"))
	_, ok := store.Load(ctx, domain.DraftKey("s"))
	assert.True(t, ok)
}

func TestDiscardClearsAndStopsFurtherWrites(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAutosaverFixture()

	a.Track("s", sampleDraft())
	a.Tick(ctx)
	require.NoError(t, a.Discard(ctx, "s"))

	a.Tick(ctx)
	_, ok := store.Load(ctx, domain.DraftKey("s"))
	assert.False(t, ok)
	assert.Equal(t, 0, a.Tracked())
}

func TestStaleSnapshotNeverOverwritesNewer(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAutosaverFixture()

	a.Track("s", sampleDraft())
	a.mu.Lock()
	e := a.entries["s"]
	old, oldVersion := e.draft.Clone(), e.version
	a.mu.Unlock()

	newer := sampleDraft()
	newer.Entity.Phone = "969999999"
	a.Track("s", newer)
	require.True(t, a.Flush(ctx, "s"))

	assert.False(t, a.persist(ctx, "s", e, old, oldVersion))
	out, ok := store.Load(ctx, domain.DraftKey("s"))
	require.True(t, ok)
	assert.Equal(t, "969999999", out.Entity.Phone)
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	ctx := context.Background()
	a, _, clk := newAutosaverFixture()

	a.Track("s", sampleDraft())
	a.Tick(ctx)
	clk.Advance(25 * time.Hour)
	a.Tick(ctx)
	assert.Equal(t, 0, a.Tracked())
}

func TestFlushAllWritesDirtySessions(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAutosaverFixture()

	a.Track("a", sampleDraft())
	a.Track("b", sampleDraft())
	assert.Equal(t, 2, a.FlushAll(ctx))
	assert.Equal(t, 2, store.count())
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	a := NewAutosaver(NewMemoryStore(Options{}), nil, time.Millisecond, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.RunForever(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("autosaver did not stop")
	}
}
