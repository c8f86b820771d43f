package pricing

import (
	"fmt"
	"strings"

	"github.com/ramonsune/custodia360/internal/config"
	"github.com/shopspring/decimal"
)

// Catalog is a parsed, immutable snapshot of the plan prices.
type Catalog struct {
	tiers           map[string]decimal.Decimal
	defaultTier     string
	kitPrice        decimal.Decimal
	substitutePrice decimal.Decimal
	taxRate         decimal.Decimal
}

func NewCatalog(cfg config.PricingConfig) (Catalog, error) {
	if err := config.ValidatePricingConfig(cfg); err != nil {
		return Catalog{}, err
	}

	cat := Catalog{
		tiers:       make(map[string]decimal.Decimal, len(cfg.Tiers)),
		defaultTier: strings.TrimSpace(cfg.DefaultTier),
	}
	for _, tier := range cfg.Tiers {
		cat.tiers[strings.TrimSpace(tier.ID)] = mustAmount(tier.BasePrice)
	}
	cat.kitPrice = mustAmount(cfg.KitPrice)
	cat.substitutePrice = mustAmount(cfg.SubstitutePrice)
	cat.taxRate = mustAmount(cfg.TaxRate)
	return cat, nil
}

// DefaultCatalog is the built-in price list.
func DefaultCatalog() Catalog {
	cat, err := NewCatalog(config.DefaultPricingConfig())
	if err != nil {
		panic(fmt.Sprintf("default pricing catalog: %v", err))
	}
	return cat
}

func (c Catalog) DefaultTier() string {
	return c.defaultTier
}

// HasTier reports whether id is one of the enumerated brackets.
func (c Catalog) HasTier(id string) bool {
	_, ok := c.tiers[strings.TrimSpace(id)]
	return ok
}

// amounts were validated by NewCatalog.
func mustAmount(raw string) decimal.Decimal {
	return decimal.RequireFromString(strings.TrimSpace(raw))
}
