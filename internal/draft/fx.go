package draft

import (
	"context"
	"errors"

	"github.com/ramonsune/custodia360/internal/clock"
	"github.com/ramonsune/custodia360/internal/config"
	"github.com/ramonsune/custodia360/internal/observability/metrics"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("draft",
	fx.Provide(NewFromConfig),
	fx.Provide(func(s *Store) domain.DraftStore { return s }),
	fx.Provide(provideAutosaver),
	fx.Invoke(startAutosaver),
)

type Params struct {
	fx.In

	Config  config.Config
	Clock   clock.Clock
	Log     *zap.Logger
	Redis   *redis.Client       `optional:"true"`
	DB      *gorm.DB            `optional:"true"`
	Metrics *metrics.Onboarding `optional:"true"`
}

// NewFromConfig builds the store selected by DRAFT_STORE_BACKEND.
func NewFromConfig(p Params) (*Store, error) {
	opts := Options{
		Clock:     p.Clock,
		Retention: p.Config.Draft.Retention,
		Log:       p.Log,
		Metrics:   p.Metrics,
	}

	switch p.Config.Draft.Backend {
	case config.DraftBackendRedis:
		if p.Redis == nil {
			return nil, errors.New("draft store backend redis requires REDIS_ADDR")
		}
		return NewRedisStore(p.Redis, opts), nil
	case config.DraftBackendMemory:
		return NewMemoryStore(opts), nil
	default:
		if p.DB == nil {
			return nil, errors.New("draft store backend sql requires a database")
		}
		return NewSQLStore(p.DB, opts), nil
	}
}

func provideAutosaver(cfg config.Config, store domain.DraftStore, c clock.Clock, log *zap.Logger) *Autosaver {
	return NewAutosaver(store, c, cfg.Draft.AutosaveInterval, cfg.Draft.Retention, log)
}

func startAutosaver(lc fx.Lifecycle, a *Autosaver, log *zap.Logger) {
	var cancel context.CancelFunc
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, c := context.WithCancel(context.Background())
			cancel = c
			go func() {
				defer close(done)
				a.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			<-done
			saved := a.FlushAll(ctx)
			log.Info("autosave stopped", zap.Int("flushed", saved))
			return nil
		},
	})
}
