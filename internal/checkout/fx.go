package checkout

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ramonsune/custodia360/internal/config"
	"github.com/ramonsune/custodia360/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("checkout",
	fx.Provide(
		provideNode,
		provideSessionClient,
		provideGuard,
		provideSealer,
		provideLimiter,
		fx.Annotate(provideRedirectDelay, fx.ResultTags(`name:"checkout_redirect_delay"`)),
		NewRepository,
		NewService,
	),
)

func provideNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

func provideSessionClient(cfg config.Config, log *zap.Logger) SessionClient {
	if cfg.Checkout.SessionURL == "" {
		log.Warn("CHECKOUT_SESSION_URL not set; checkout will fail until configured")
	}
	return NewHTTPClient(cfg.Checkout.SessionURL, cfg.Checkout.APIKey, cfg.Checkout.Timeout)
}

func provideGuard(cfg config.Config, locker *ratelimit.Locker, log *zap.Logger) Guard {
	if locker == nil {
		return NewLocalGuard()
	}
	return NewRedisGuard(locker, cfg.Checkout.LockTTL, log)
}

func provideSealer(cfg config.Config, log *zap.Logger) (*Sealer, error) {
	if cfg.Checkout.SnapshotSecret == "" {
		log.Warn("CHECKOUT_SNAPSHOT_SECRET not set; pending contract snapshots do not survive restarts")
	}
	return NewSealer(cfg.Checkout.SnapshotSecret)
}

func provideLimiter(limiter *ratelimit.CheckoutLimiter) AttemptLimiter {
	if limiter == nil {
		return nil
	}
	return limiter
}

func provideRedirectDelay(cfg config.Config) time.Duration {
	return cfg.Checkout.RedirectDelay
}
