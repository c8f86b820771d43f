package pricing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ramonsune/custodia360/internal/config"
	"github.com/ramonsune/custodia360/internal/observability/metrics"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeReferenceExample(t *testing.T) {
	got, reason := Compute(DefaultCatalog(), "51-200", domain.AddOns{
		IncludeCommunicationKit:   true,
		IncludeSubstituteDelegate: true,
	})
	assert.Empty(t, reason)
	assert.False(t, got.Degraded)

	assert.Equal(t, "99.00", got.Installment1.StringFixed(2))
	assert.Equal(t, "20.79", got.Tax1.StringFixed(2))
	assert.Equal(t, "119.79", got.TotalDueToday.StringFixed(2))
	assert.Equal(t, "39.00", got.Installment2.StringFixed(2))
	assert.Equal(t, "8.19", got.Tax2.StringFixed(2))
	assert.Equal(t, "47.19", got.TotalDueLater.StringFixed(2))
}

func TestAddOnsOnlyLandOnFirstInstallment(t *testing.T) {
	plain, _ := Compute(DefaultCatalog(), "1-50", domain.AddOns{})
	kit, _ := Compute(DefaultCatalog(), "1-50", domain.AddOns{IncludeCommunicationKit: true})

	assert.True(t, plain.Installment2.Equal(kit.Installment2))
	assert.True(t, kit.Installment1.Sub(plain.Installment1).Equal(dec("40")))
	assert.True(t, kit.SubstitutePrice.IsZero())
}

func TestInstallmentsSumToPlanPrice(t *testing.T) {
	cfg := config.DefaultPricingConfig()
	cfg.Tiers = append(cfg.Tiers, config.TierPrice{ID: "odd", BasePrice: "77.99"}, config.TierPrice{ID: "cents", BasePrice: "0.01"})
	cat, err := NewCatalog(cfg)
	require.NoError(t, err)

	for _, tier := range []string{"1-50", "51-200", "201-500", "501+", "odd", "cents"} {
		for _, addOns := range []domain.AddOns{{}, {IncludeCommunicationKit: true}, {IncludeSubstituteDelegate: true}, {IncludeCommunicationKit: true, IncludeSubstituteDelegate: true}} {
			got, _ := Compute(cat, tier, addOns)
			preTax := got.Installment1.Add(got.Installment2).Sub(got.KitPrice).Sub(got.SubstitutePrice)
			assert.True(t, preTax.Equal(got.PlanBaseMonthly), "tier %s: %s != %s", tier, preTax, got.PlanBaseMonthly)
			assert.True(t, got.Installment1.GreaterThanOrEqual(got.Installment2))
		}
	}

	odd, _ := Compute(cat, "odd", domain.AddOns{})
	assert.Equal(t, "39.00", odd.Installment1.StringFixed(2))
	assert.Equal(t, "38.99", odd.Installment2.StringFixed(2))
}

func TestTaxRoundsHalfUpPerInstallment(t *testing.T) {
	cfg := config.DefaultPricingConfig()
	// 0.50 * 0.21 = 0.105 rounds to 0.11
	cfg.Tiers = append(cfg.Tiers, config.TierPrice{ID: "one", BasePrice: "1.00"})
	cat, err := NewCatalog(cfg)
	require.NoError(t, err)

	got, _ := Compute(cat, "one", domain.AddOns{})
	assert.Equal(t, "0.11", got.Tax1.StringFixed(2))
	assert.Equal(t, "0.11", got.Tax2.StringFixed(2))
	assert.Equal(t, "0.61", got.TotalDueToday.StringFixed(2))
}

func TestComputeIsIdempotent(t *testing.T) {
	addOns := domain.AddOns{IncludeCommunicationKit: true}
	first, _ := Compute(DefaultCatalog(), "501+", addOns)
	second, _ := Compute(DefaultCatalog(), "501+", addOns)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), `"totalDueToday":"168.19"`)
}

func TestComputeFallsBackToDefaultTier(t *testing.T) {
	got, reason := Compute(DefaultCatalog(), "9999", domain.AddOns{})
	assert.Equal(t, FallbackUnknownTier, reason)
	assert.True(t, got.Degraded)
	assert.Equal(t, "1-50", got.PlanTier)
	assert.Equal(t, "38.00", got.PlanBaseMonthly.StringFixed(2))

	_, reason = Compute(DefaultCatalog(), "  ", domain.AddOns{})
	assert.Equal(t, FallbackMissingTier, reason)
}

type staticSource struct{ cfg config.PricingConfig }

func (s staticSource) Get() config.PricingConfig { return s.cfg }

func TestEngineLogsFallback(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.NewOnboarding(prometheus.NewRegistry(), metrics.Config{})
	engine := NewEngine(EngineParams{
		Log:     zap.New(core),
		Source:  staticSource{cfg: config.DefaultPricingConfig()},
		Metrics: m,
	})

	got := engine.Quote(context.Background(), "unknown", domain.AddOns{})
	assert.True(t, got.Degraded)
	require.Equal(t, 1, logs.FilterMessage("pricing tier fallback").Len())
}

func TestEngineUsesBuiltInCatalogWhenSourceInvalid(t *testing.T) {
	engine := NewEngine(EngineParams{
		Log:    zap.NewNop(),
		Source: staticSource{cfg: config.PricingConfig{}},
	})
	got := engine.Quote(context.Background(), "501+", domain.AddOns{})
	assert.Equal(t, "198.00", got.PlanBaseMonthly.StringFixed(2))
	assert.False(t, got.Degraded)
}
