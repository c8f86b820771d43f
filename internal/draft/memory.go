package draft

import (
	"context"
	"time"

	"github.com/ramonsune/custodia360/internal/cache"
)

type memoryBackend struct {
	entries *cache.TTLCache[string, []byte]
}

// NewMemoryStore keeps drafts in process memory. Drafts do not survive restarts.
func NewMemoryStore(opts Options) *Store {
	return newStore(&memoryBackend{entries: cache.NewTTLCacheWithClock[string, []byte](opts.Clock)}, opts)
}

func (b *memoryBackend) Name() string { return "memory" }

func (b *memoryBackend) Put(_ context.Context, key string, payload []byte, _ time.Time, ttl time.Duration) error {
	b.entries.Set(key, append([]byte(nil), payload...), ttl)
	return nil
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	payload, ok := b.entries.Get(key)
	return payload, ok, nil
}

func (b *memoryBackend) Delete(_ context.Context, key string) error {
	b.entries.Delete(key)
	return nil
}

func (b *memoryBackend) PurgeExpired(context.Context) (int64, error) {
	return int64(b.entries.Sweep()), nil
}
