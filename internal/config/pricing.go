package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TierPrice is one child-count bracket of the plan catalog.
type TierPrice struct {
	ID          string `mapstructure:"id"`
	Label       string `mapstructure:"label"`
	MinChildren int    `mapstructure:"minChildren"`
	MaxChildren *int   `mapstructure:"maxChildren"`
	BasePrice   string `mapstructure:"basePrice"`
}

// PricingConfig is the plan catalog. Amounts are decimal strings to keep them exact.
type PricingConfig struct {
	Tiers           []TierPrice `mapstructure:"tiers"`
	DefaultTier     string      `mapstructure:"defaultTier"`
	KitPrice        string      `mapstructure:"kitPrice"`
	SubstitutePrice string      `mapstructure:"substitutePrice"`
	TaxRate         string      `mapstructure:"taxRate"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Tiers: []TierPrice{
			{ID: "1-50", Label: "1 a 50 menores", MinChildren: 1, MaxChildren: intPtr(50), BasePrice: "38.00"},
			{ID: "51-200", Label: "51 a 200 menores", MinChildren: 51, MaxChildren: intPtr(200), BasePrice: "78.00"},
			{ID: "201-500", Label: "201 a 500 menores", MinChildren: 201, MaxChildren: intPtr(500), BasePrice: "118.00"},
			{ID: "501+", Label: "Más de 500 menores", MinChildren: 501, MaxChildren: nil, BasePrice: "198.00"},
		},
		DefaultTier:     "1-50",
		KitPrice:        "40.00",
		SubstitutePrice: "20.00",
		TaxRate:         "0.21",
	}
}

func intPtr(v int) *int { return &v }

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig

	v   *viper.Viper
	log *zap.Logger
}

// NewStaticPricingConfigHolder returns a holder that never reloads.
func NewStaticPricingConfigHolder(cfg PricingConfig) (*PricingConfigHolder, error) {
	if err := ValidatePricingConfig(cfg); err != nil {
		return nil, err
	}
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

// NewPricingConfigHolder loads pricing.yml from /etc/custodia360 or the working
// directory and reloads it on change. A reload that fails to decode or validate
// leaves the served catalog untouched.
func NewPricingConfigHolder(log *zap.Logger) (*PricingConfigHolder, error) {
	return loadPricingConfigHolder(log, true, "/etc/custodia360", ".")
}

func loadPricingConfigHolder(log *zap.Logger, watch bool, paths ...string) (*PricingConfigHolder, error) {
	v := viper.New()
	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	v.SetEnvPrefix("CUSTODIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &PricingConfigHolder{v: v, log: log.Named("pricing.config")}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		holder.current.Store(DefaultPricingConfig())
		return holder, nil
	}

	cfg, err := decodePricingConfig(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(cfg)

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			if holder.apply() {
				holder.log.Info("pricing config reloaded", zap.String("file", e.Name))
			}
		})
		v.WatchConfig()
	}
	return holder, nil
}

// reload re-reads the config file and applies it when valid.
func (h *PricingConfigHolder) reload() bool {
	if err := h.v.ReadInConfig(); err != nil {
		h.log.Warn("pricing reload failed", zap.Error(err))
		return false
	}
	return h.apply()
}

func (h *PricingConfigHolder) apply() bool {
	updated, err := decodePricingConfig(h.v)
	if err != nil {
		h.log.Warn("invalid pricing config ignored", zap.Error(err))
		return false
	}
	h.current.Store(updated)
	return true
}

// decodePricingConfig decodes into a fresh value so a rejected file never
// shares memory with the catalog being served. Missing scalars take the
// built-in defaults; tiers come from the file alone unless it lists none.
func decodePricingConfig(v *viper.Viper) (PricingConfig, error) {
	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return PricingConfig{}, err
	}

	defaults := DefaultPricingConfig()
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = append([]TierPrice(nil), defaults.Tiers...)
	}
	if strings.TrimSpace(cfg.DefaultTier) == "" {
		cfg.DefaultTier = defaults.DefaultTier
	}
	if strings.TrimSpace(cfg.KitPrice) == "" {
		cfg.KitPrice = defaults.KitPrice
	}
	if strings.TrimSpace(cfg.SubstitutePrice) == "" {
		cfg.SubstitutePrice = defaults.SubstitutePrice
	}
	if strings.TrimSpace(cfg.TaxRate) == "" {
		cfg.TaxRate = defaults.TaxRate
	}

	if err := ValidatePricingConfig(cfg); err != nil {
		return PricingConfig{}, err
	}
	return cfg, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func ValidatePricingConfig(cfg PricingConfig) error {
	if len(cfg.Tiers) == 0 {
		return errors.New("pricing.tiers cannot be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Tiers))
	for _, tier := range cfg.Tiers {
		id := strings.TrimSpace(tier.ID)
		if id == "" {
			return errors.New("pricing.tiers[].id is required")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("pricing tier %q is duplicated", id)
		}
		seen[id] = struct{}{}
		if err := validateAmount("pricing.tiers["+id+"].basePrice", tier.BasePrice); err != nil {
			return err
		}
	}
	if _, ok := seen[strings.TrimSpace(cfg.DefaultTier)]; !ok {
		return fmt.Errorf("pricing.defaultTier %q is not a configured tier", cfg.DefaultTier)
	}
	if err := validateAmount("pricing.kitPrice", cfg.KitPrice); err != nil {
		return err
	}
	if err := validateAmount("pricing.substitutePrice", cfg.SubstitutePrice); err != nil {
		return err
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.TaxRate))
	if err != nil {
		return fmt.Errorf("pricing.taxRate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("pricing.taxRate must be a fraction in [0, 1)")
	}
	return nil
}

func validateAmount(field, raw string) error {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%s cannot be negative", field)
	}
	return nil
}
