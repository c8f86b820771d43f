package pricing

import (
	"github.com/ramonsune/custodia360/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing",
	fx.Provide(func(h *config.PricingConfigHolder) CatalogSource { return h }),
	fx.Provide(NewEngine),
)
