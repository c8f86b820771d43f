package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const lockPrefix = "custodia360:lock:"

var Module = fx.Module("rate.limit",
	fx.Provide(NewCheckoutLimiter),
	fx.Provide(func(client *redis.Client) *Locker { return NewLocker(client, lockPrefix) }),
)
