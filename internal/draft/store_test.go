package draft

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ramonsune/custodia360/internal/clock"
	"github.com/ramonsune/custodia360/internal/observability/metrics"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	dbpkg "github.com/ramonsune/custodia360/pkg/db"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testStart = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func sampleDraft() *domain.FormDraft {
	return &domain.FormDraft{
		Entity: domain.Entity{
			LegalName:    "Escuela de Música Sol",
			TaxID:        "B87654321",
			Type:         "educativo",
			Address:      "Avenida del Puerto 12, Valencia",
			Phone:        "960000000",
			Site:         "https://escuelasol.example",
			ChildBracket: "201-500",
		},
		Contractor: domain.Contractor{Name: "Irene Soler", Email: "irene@example.org", Secret: "x1"},
		Delegate: domain.Delegate{
			Principal:  domain.DelegatePerson{Name: "Jorge Vidal", BirthDate: "1990-01-31"},
			Substitute: &domain.DelegatePerson{Name: "Clara Pons"},
		},
		PlanTier: "201-500",
		AddOns:   domain.AddOns{IncludeCommunicationKit: true, IncludeSubstituteDelegate: true},
	}
}

type storeCase struct {
	name  string
	build func(t *testing.T, clk clock.Clock) *Store
}

func storeCases() []storeCase {
	return []storeCase{
		{name: "memory", build: func(t *testing.T, clk clock.Clock) *Store {
			return NewMemoryStore(Options{Clock: clk, Log: zap.NewNop()})
		}},
		{name: "redis", build: func(t *testing.T, clk clock.Clock) *Store {
			return NewRedisStore(newFakeRedis(), Options{Clock: clk, Log: zap.NewNop()})
		}},
		{name: "sql", build: func(t *testing.T, clk clock.Clock) *Store {
			conn, err := dbpkg.NewTest()
			require.NoError(t, err)
			require.NoError(t, conn.AutoMigrate(&Record{}))
			return NewSQLStore(conn, Options{Clock: clk, Log: zap.NewNop()})
		}},
	}
}

func TestStoreRoundTripWithinRetention(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			clk := clock.NewFakeClock(testStart)
			store := tc.build(t, clk)
			key := domain.DraftKey("sess-a")

			in := sampleDraft()
			require.NoError(t, store.Save(ctx, key, in))
			assert.Equal(t, testStart, in.SavedAt)

			clk.Advance(23*time.Hour + 59*time.Minute)
			out, ok := store.Load(ctx, key)
			require.True(t, ok)
			assert.Equal(t, in.Entity, out.Entity)
			assert.Equal(t, in.Contractor, out.Contractor)
			assert.Equal(t, in.Delegate.Principal, out.Delegate.Principal)
			require.NotNil(t, out.Delegate.Substitute)
			assert.Equal(t, *in.Delegate.Substitute, *out.Delegate.Substitute)
			assert.Equal(t, in.AddOns, out.AddOns)
			assert.Equal(t, in.PlanTier, out.PlanTier)
			assert.True(t, in.SavedAt.Equal(out.SavedAt))
		})
	}
}

func TestStoreExpiredDraftIsPurged(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			clk := clock.NewFakeClock(testStart)
			store := tc.build(t, clk)
			key := domain.DraftKey("sess-b")

			require.NoError(t, store.Save(ctx, key, sampleDraft()))
			clk.Advance(24 * time.Hour)

			_, ok := store.Load(ctx, key)
			assert.False(t, ok)

			// Still absent even if the clock were rewound: the record is gone.
			payload, found, err := store.backend.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, payload)
		})
	}
}

func TestStoreOverwriteIsLastWriteWins(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			clk := clock.NewFakeClock(testStart)
			store := tc.build(t, clk)
			key := domain.DraftKey("sess-c")

			first := sampleDraft()
			require.NoError(t, store.Save(ctx, key, first))
			clk.Advance(time.Second)
			second := sampleDraft()
			second.Entity.Phone = "961111111"
			require.NoError(t, store.Save(ctx, key, second))

			out, ok := store.Load(ctx, key)
			require.True(t, ok)
			assert.Equal(t, "961111111", out.Entity.Phone)
			assert.Equal(t, testStart.Add(time.Second), out.SavedAt.UTC())
		})
	}
}

func TestStoreClear(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := tc.build(t, clock.NewFakeClock(testStart))
			key := domain.DraftKey("sess-d")

			require.NoError(t, store.Save(ctx, key, sampleDraft()))
			require.NoError(t, store.Clear(ctx, key))
			_, ok := store.Load(ctx, key)
			assert.False(t, ok)
			assert.NoError(t, store.Clear(ctx, key))
		})
	}
}

func TestStoreCorruptPayloadIsAbsentAndPurged(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	store := NewRedisStore(client, Options{Clock: clock.NewFakeClock(testStart)})
	key := domain.DraftKey("sess-e")

	client.data[key] = "{not json"
	_, ok := store.Load(ctx, key)
	assert.False(t, ok)
	assert.NotContains(t, client.data, key)

	client.data[key] = `{"entity":{"legalName":"x"}}`
	_, ok = store.Load(ctx, key)
	assert.False(t, ok, "a record without savedAt is unreadable")
}

func TestRedisStoreKeyTTLMatchesRetention(t *testing.T) {
	client := newFakeRedis()
	store := NewRedisStore(client, Options{Clock: clock.NewFakeClock(testStart), Retention: 2 * time.Hour})
	key := domain.DraftKey("sess-f")

	require.NoError(t, store.Save(context.Background(), key, sampleDraft()))
	assert.Equal(t, 2*time.Hour, client.ttls[key])
}

func TestStoreReadFailureIsAbsent(t *testing.T) {
	client := newFakeRedis()
	reg := prometheus.NewRegistry()
	store := NewRedisStore(client, Options{
		Clock:   clock.NewFakeClock(testStart),
		Metrics: metrics.NewOnboarding(reg, metrics.Config{}),
	})
	client.err = assert.AnError

	_, ok := store.Load(context.Background(), domain.DraftKey("sess-g"))
	assert.False(t, ok)
	assert.ErrorIs(t, store.Save(context.Background(), domain.DraftKey("sess-g"), sampleDraft()), assert.AnError)
}

func TestStoreRejectsInvalidInput(t *testing.T) {
	store := NewMemoryStore(Options{})
	assert.ErrorIs(t, store.Save(context.Background(), "", sampleDraft()), ErrEmptyKey)
	assert.ErrorIs(t, store.Save(context.Background(), "k", nil), ErrNilDraft)
}

func TestSQLStorePurgeExpired(t *testing.T) {
	ctx := context.Background()
	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&Record{}))
	clk := clock.NewFakeClock(testStart)
	store := NewSQLStore(conn, Options{Clock: clk})

	require.NoError(t, store.Save(ctx, domain.DraftKey("old"), sampleDraft()))
	clk.Advance(20 * time.Hour)
	require.NoError(t, store.Save(ctx, domain.DraftKey("new"), sampleDraft()))
	clk.Advance(5 * time.Hour)

	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok := store.Load(ctx, domain.DraftKey("new"))
	assert.True(t, ok)
}
