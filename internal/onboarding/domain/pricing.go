package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PricingBreakdown is the two-installment price of a plan tier and its add-ons.
// It is derived on demand and never persisted.
type PricingBreakdown struct {
	PlanTier        string
	Degraded        bool
	PlanBaseMonthly decimal.Decimal
	KitPrice        decimal.Decimal
	SubstitutePrice decimal.Decimal
	TaxRate         decimal.Decimal

	Installment1  decimal.Decimal
	Installment2  decimal.Decimal
	Tax1          decimal.Decimal
	Tax2          decimal.Decimal
	TotalDueToday decimal.Decimal
	TotalDueLater decimal.Decimal
}

type pricingBreakdownJSON struct {
	PlanTier        string `json:"planTier"`
	Degraded        bool   `json:"degraded,omitempty"`
	PlanBaseMonthly string `json:"planBaseMonthly"`
	KitPrice        string `json:"kitPrice"`
	SubstitutePrice string `json:"substitutePrice"`
	TaxRate         string `json:"taxRate"`
	Installment1    string `json:"installment1"`
	Installment2    string `json:"installment2"`
	Tax1            string `json:"tax1"`
	Tax2            string `json:"tax2"`
	TotalDueToday   string `json:"totalDueToday"`
	TotalDueLater   string `json:"totalDueLater"`
}

// MarshalJSON renders every amount with exactly two decimals.
func (b PricingBreakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(pricingBreakdownJSON{
		PlanTier:        b.PlanTier,
		Degraded:        b.Degraded,
		PlanBaseMonthly: b.PlanBaseMonthly.StringFixed(2),
		KitPrice:        b.KitPrice.StringFixed(2),
		SubstitutePrice: b.SubstitutePrice.StringFixed(2),
		TaxRate:         b.TaxRate.String(),
		Installment1:    b.Installment1.StringFixed(2),
		Installment2:    b.Installment2.StringFixed(2),
		Tax1:            b.Tax1.StringFixed(2),
		Tax2:            b.Tax2.StringFixed(2),
		TotalDueToday:   b.TotalDueToday.StringFixed(2),
		TotalDueLater:   b.TotalDueLater.StringFixed(2),
	})
}
