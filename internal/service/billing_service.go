package service

import (
	"github.com/shopspring/decimal"

	"smart_switch/internal/models"
	"smart_switch/internal/rules"
)

type BillingService struct {
	tariff rules.Tariff
}

func NewBillingService(t rules.Tariff) *BillingService {
	if len(t.Tiers) == 0 {
		t = rules.DefaultTariff()
	}
	return &BillingService{tariff: t}
}

func (s *BillingService) Tariff() rules.Tariff { return s.tariff }

// Quote prices units and attaches the current band and saving tips.
func (s *BillingService) Quote(units decimal.Decimal) models.Quote {
	if units.IsNegative() {
		units = decimal.Zero
	}
	cost := s.tariff.Cost(units)
	return models.Quote{
		Units:       units,
		Currency:    s.tariff.Currency,
		Cost:        cost,
		Display:     cost.TotalCost.StringFixed(2),
		CurrentTier: s.tariff.TierFor(units),
		Tips:        rules.Tips(units),
	}
}
