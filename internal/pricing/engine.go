package pricing

import (
	"context"
	"strings"

	"github.com/ramonsune/custodia360/internal/config"
	"github.com/ramonsune/custodia360/internal/observability/metrics"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	FallbackMissingTier = "missing_tier"
	FallbackUnknownTier = "unknown_tier"
)

var two = decimal.NewFromInt(2)

// Compute prices tier and addOns against cat. An unknown or empty tier is priced
// as the default tier and reported through the returned fallback reason.
func Compute(cat Catalog, tier string, addOns domain.AddOns) (domain.PricingBreakdown, string) {
	tier = strings.TrimSpace(tier)
	reason := ""
	base, ok := cat.tiers[tier]
	if !ok {
		reason = FallbackUnknownTier
		if tier == "" {
			reason = FallbackMissingTier
		}
		tier = cat.defaultTier
		base = cat.tiers[tier]
	}

	// Halves are truncated so the odd cent lands on the first installment.
	installment2 := base.Div(two).Truncate(2)
	installment1 := base.Sub(installment2)

	kit := decimal.Zero
	if addOns.IncludeCommunicationKit {
		kit = cat.kitPrice
	}
	substitute := decimal.Zero
	if addOns.IncludeSubstituteDelegate {
		substitute = cat.substitutePrice
	}
	installment1 = installment1.Add(kit).Add(substitute).Round(2)
	installment2 = installment2.Round(2)

	tax1 := installment1.Mul(cat.taxRate).Round(2)
	tax2 := installment2.Mul(cat.taxRate).Round(2)

	return domain.PricingBreakdown{
		PlanTier:        tier,
		Degraded:        reason != "",
		PlanBaseMonthly: base.Round(2),
		KitPrice:        kit.Round(2),
		SubstitutePrice: substitute.Round(2),
		TaxRate:         cat.taxRate,
		Installment1:    installment1,
		Installment2:    installment2,
		Tax1:            tax1,
		Tax2:            tax2,
		TotalDueToday:   installment1.Add(tax1).Round(2),
		TotalDueLater:   installment2.Add(tax2).Round(2),
	}, reason
}

// CatalogSource yields the current pricing configuration.
type CatalogSource interface {
	Get() config.PricingConfig
}

type EngineParams struct {
	fx.In

	Log     *zap.Logger
	Source  CatalogSource
	Metrics *metrics.Onboarding `optional:"true"`
}

// Engine quotes against the live catalog and reports degraded pricing.
type Engine struct {
	log     *zap.Logger
	source  CatalogSource
	metrics *metrics.Onboarding
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{
		log:     p.Log.Named("pricing.engine"),
		source:  p.Source,
		metrics: p.Metrics,
	}
}

func (e *Engine) Quote(ctx context.Context, tier string, addOns domain.AddOns) domain.PricingBreakdown {
	cat, err := NewCatalog(e.source.Get())
	if err != nil {
		e.log.Error("pricing catalog invalid, using built-in prices", zap.Error(err))
		cat = DefaultCatalog()
	}

	breakdown, reason := Compute(cat, tier, addOns)
	if reason != "" {
		e.log.Warn("pricing tier fallback",
			zap.String("reason", reason),
			zap.String("requested_tier", strings.TrimSpace(tier)),
			zap.String("applied_tier", breakdown.PlanTier),
		)
		e.metrics.PricingFallback(reason)
	}
	return breakdown
}
