package draft

import (
	"context"
	"sync"
	"time"

	"github.com/ramonsune/custodia360/internal/clock"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"go.uber.org/zap"
)

const (
	DefaultAutosaveInterval = 10 * time.Second
	purgeEvery              = time.Hour
)

type tracked struct {
	// guarded by Autosaver.mu
	draft   *domain.FormDraft
	dirty   bool
	version uint64
	touched time.Time

	// saveMu orders writes of one session against each other and Discard.
	saveMu       sync.Mutex
	savedVersion uint64
	gone         bool
}

// Autosaver keeps the latest in-memory form state of each session and writes
// dirty, non-empty drafts to the store on every tick. Write failures are
// logged and retried on the next tick; they never reach the caller.
type Autosaver struct {
	store     domain.DraftStore
	clock     clock.Clock
	interval  time.Duration
	retention time.Duration
	log       *zap.Logger

	mu        sync.Mutex
	entries   map[string]*tracked
	lastPurge time.Time
}

func NewAutosaver(store domain.DraftStore, c clock.Clock, interval, retention time.Duration, log *zap.Logger) *Autosaver {
	if c == nil {
		c = clock.SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Autosaver{
		store:     store,
		clock:     c,
		interval:  interval,
		retention: retention,
		log:       log.Named("draft.autosave"),
		entries:   make(map[string]*tracked),
		lastPurge: c.Now(),
	}
}

// Track records the latest form state of session and marks it dirty.
func (a *Autosaver) Track(sessionID string, draft *domain.FormDraft) {
	if sessionID == "" || draft == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[sessionID]
	if !ok {
		e = &tracked{}
		a.entries[sessionID] = e
	}
	e.draft = draft.Clone()
	e.dirty = true
	e.version++
	e.touched = a.clock.Now()
}

// Flush synchronously writes the tracked state of session. It reports whether a write happened.
func (a *Autosaver) Flush(ctx context.Context, sessionID string) bool {
	a.mu.Lock()
	e, ok := a.entries[sessionID]
	if !ok || e.draft.IsEmpty() {
		a.mu.Unlock()
		return false
	}
	snapshot, version := e.draft.Clone(), e.version
	e.dirty = false
	a.mu.Unlock()

	return a.persist(ctx, sessionID, e, snapshot, version)
}

// FlushAll writes every dirty session. Used on shutdown.
func (a *Autosaver) FlushAll(ctx context.Context) int {
	return a.saveDirty(ctx)
}

// Discard drops the tracked state of session and clears its stored draft.
// No autosave write for the session can land after Discard returns.
func (a *Autosaver) Discard(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	e := a.entries[sessionID]
	delete(a.entries, sessionID)
	a.mu.Unlock()

	if e != nil {
		e.saveMu.Lock()
		defer e.saveMu.Unlock()
		e.gone = true
	}
	return a.store.Clear(ctx, domain.DraftKey(sessionID))
}

// Tick runs one autosave cycle.
func (a *Autosaver) Tick(ctx context.Context) {
	saved := a.saveDirty(ctx)
	evicted := a.evictIdle()
	if saved > 0 || evicted > 0 {
		a.log.Debug("autosave cycle", zap.Int("saved", saved), zap.Int("evicted", evicted))
	}
	a.maybePurge(ctx)
}

// RunForever ticks until ctx is cancelled.
func (a *Autosaver) RunForever(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

type pending struct {
	sessionID string
	entry     *tracked
	draft     *domain.FormDraft
	version   uint64
}

func (a *Autosaver) saveDirty(ctx context.Context) int {
	a.mu.Lock()
	batch := make([]pending, 0, len(a.entries))
	for id, e := range a.entries {
		if !e.dirty || e.draft.IsEmpty() {
			continue
		}
		e.dirty = false
		batch = append(batch, pending{sessionID: id, entry: e, draft: e.draft.Clone(), version: e.version})
	}
	a.mu.Unlock()

	saved := 0
	for _, p := range batch {
		if a.persist(ctx, p.sessionID, p.entry, p.draft, p.version) {
			saved++
		}
	}
	return saved
}

func (a *Autosaver) persist(ctx context.Context, sessionID string, e *tracked, draft *domain.FormDraft, version uint64) bool {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	if e.gone || version < e.savedVersion {
		return false
	}
	if err := a.store.Save(ctx, domain.DraftKey(sessionID), draft); err != nil {
		a.log.Warn("draft save failed", zap.Error(err))
		a.mu.Lock()
		if e.version == version {
			e.dirty = true
		}
		a.mu.Unlock()
		return false
	}
	e.savedVersion = version
	return true
}

func (a *Autosaver) evictIdle() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.clock.Now().Add(-a.retention)
	evicted := 0
	for id, e := range a.entries {
		if !e.dirty && e.touched.Before(cutoff) {
			delete(a.entries, id)
			evicted++
		}
	}
	return evicted
}

func (a *Autosaver) maybePurge(ctx context.Context) {
	purger, ok := a.store.(expiredPurger)
	if !ok {
		return
	}
	now := a.clock.Now()
	if now.Sub(a.lastPurge) < purgeEvery {
		return
	}
	a.lastPurge = now

	removed, err := purger.PurgeExpired(ctx)
	if err != nil {
		a.log.Warn("expired draft purge failed", zap.Error(err))
		return
	}
	if removed > 0 {
		a.log.Info("expired drafts purged", zap.Int64("removed", removed))
	}
}

// Tracked reports how many sessions hold in-memory state.
func (a *Autosaver) Tracked() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
