package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"github.com/ramonsune/custodia360/internal/ratelimit"
	"go.uber.org/zap"
)

// Guard admits one outstanding handoff per session.
type Guard interface {
	// Acquire returns domain.ErrSubmissionInFlight while another handoff for sessionID runs.
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

type localGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewLocalGuard() Guard {
	return &localGuard{inFlight: make(map[string]struct{})}
}

func (g *localGuard) Acquire(_ context.Context, sessionID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[sessionID]; busy {
		return nil, domain.ErrSubmissionInFlight
	}
	g.inFlight[sessionID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, sessionID)
			g.mu.Unlock()
		})
	}, nil
}

// redisGuard holds the lease across replicas and falls back to the local
// guard when redis is unreachable.
type redisGuard struct {
	locker   *ratelimit.Locker
	ttl      time.Duration
	fallback Guard
	log      *zap.Logger
}

func NewRedisGuard(locker *ratelimit.Locker, ttl time.Duration, log *zap.Logger) Guard {
	return &redisGuard{
		locker:   locker,
		ttl:      ttl,
		fallback: NewLocalGuard(),
		log:      log.Named("checkout.guard"),
	}
}

func (g *redisGuard) Acquire(ctx context.Context, sessionID string) (func(), error) {
	lease, err := g.locker.TryAcquire(ctx, "checkout:"+sessionID, g.ttl)
	if err != nil {
		g.log.Warn("checkout lock unavailable, using local guard", zap.Error(err))
		return g.fallback.Acquire(ctx, sessionID)
	}
	if lease == nil {
		return nil, domain.ErrSubmissionInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// release must outlive a cancelled request context
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := g.locker.Release(releaseCtx, lease); err != nil {
				g.log.Warn("checkout lock release failed", zap.Error(err))
			}
		})
	}, nil
}
