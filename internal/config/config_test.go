package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDraftAndCheckoutDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DRAFT_STORE_BACKEND", "")
	t.Setenv("DRAFT_RETENTION", "")
	t.Setenv("PUBLIC_BASE_URL", "https://app.custodia360.es/")

	cfg := Load()

	assert.Equal(t, DraftBackendSQL, cfg.Draft.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Draft.Retention)
	assert.Equal(t, 10*time.Second, cfg.Draft.AutosaveInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.Checkout.RedirectDelay)
	assert.Equal(t, "https://app.custodia360.es", cfg.PublicBaseURL)
	assert.False(t, cfg.Draft.CookieSecure)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DRAFT_STORE_BACKEND", "REDIS")
	t.Setenv("DRAFT_AUTOSAVE_INTERVAL", "5s")
	t.Setenv("CHECKOUT_TIMEOUT", "not-a-duration")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Draft.CookieSecure)
	assert.Equal(t, DraftBackendRedis, cfg.Draft.Backend)
	assert.Equal(t, 5*time.Second, cfg.Draft.AutosaveInterval)
	assert.Equal(t, 12*time.Second, cfg.Checkout.Timeout)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestDefaultPricingConfigIsValid(t *testing.T) {
	require.NoError(t, ValidatePricingConfig(DefaultPricingConfig()))

	holder, err := NewStaticPricingConfigHolder(DefaultPricingConfig())
	require.NoError(t, err)
	assert.Equal(t, "1-50", holder.Get().DefaultTier)
}

func TestValidatePricingConfigRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *PricingConfig)
	}{
		{name: "no tiers", mutate: func(cfg *PricingConfig) { cfg.Tiers = nil }},
		{name: "unknown default", mutate: func(cfg *PricingConfig) { cfg.DefaultTier = "9999" }},
		{name: "duplicate tier", mutate: func(cfg *PricingConfig) { cfg.Tiers = append(cfg.Tiers, cfg.Tiers[0]) }},
		{name: "negative base", mutate: func(cfg *PricingConfig) { cfg.Tiers[1].BasePrice = "-1" }},
		{name: "bad kit price", mutate: func(cfg *PricingConfig) { cfg.KitPrice = "forty" }},
		{name: "tax rate above one", mutate: func(cfg *PricingConfig) { cfg.TaxRate = "21" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPricingConfig()
			tt.mutate(&cfg)
			assert.Error(t, ValidatePricingConfig(cfg))
		})
	}
}

const twoTierPricing = `pricing:
  defaultTier: "1-50"
  tiers:
    - id: "1-50"
      basePrice: "40.00"
    - id: "51-200"
      basePrice: "80.00"
`

func writePricingFile(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pricing.yml"), []byte(body), 0o600))
}

func TestPricingConfigHolderLoadsFile(t *testing.T) {
	dir := t.TempDir()
	writePricingFile(t, dir, twoTierPricing)

	holder, err := loadPricingConfigHolder(zap.NewNop(), false, dir)
	require.NoError(t, err)

	cfg := holder.Get()
	require.Len(t, cfg.Tiers, 2)
	assert.Equal(t, "80.00", cfg.Tiers[1].BasePrice)
	assert.Empty(t, cfg.Tiers[1].Label)
	assert.Nil(t, cfg.Tiers[1].MaxChildren)
	assert.Equal(t, "40.00", cfg.KitPrice)
	assert.Equal(t, "0.21", cfg.TaxRate)
}

func TestPricingConfigHolderWithoutFileUsesDefaults(t *testing.T) {
	holder, err := loadPricingConfigHolder(zap.NewNop(), false, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultPricingConfig(), holder.Get())
}

func TestPricingConfigHolderIgnoresInvalidReload(t *testing.T) {
	dir := t.TempDir()
	writePricingFile(t, dir, twoTierPricing)

	holder, err := loadPricingConfigHolder(zap.NewNop(), false, dir)
	require.NoError(t, err)
	before := holder.Get()

	writePricingFile(t, dir, `pricing:
  defaultTier: "1-50"
  tiers:
    - id: "1-50"
      basePrice: "40.00"
    - id: "51-200"
      basePrice: "abc"
`)
	assert.False(t, holder.reload())

	after := holder.Get()
	assert.Equal(t, before, after)
	assert.Equal(t, "80.00", after.Tiers[1].BasePrice)
	require.NoError(t, ValidatePricingConfig(after))
	assert.Equal(t, "38.00", DefaultPricingConfig().Tiers[0].BasePrice)

	writePricingFile(t, dir, `pricing:
  defaultTier: "1-50"
  kitPrice: "45.00"
  tiers:
    - id: "1-50"
      basePrice: "42.00"
`)
	require.True(t, holder.reload())
	reloaded := holder.Get()
	require.Len(t, reloaded.Tiers, 1)
	assert.Equal(t, "42.00", reloaded.Tiers[0].BasePrice)
	assert.Equal(t, "45.00", reloaded.KitPrice)
	assert.Equal(t, "80.00", before.Tiers[1].BasePrice)
}
