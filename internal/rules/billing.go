package rules

import (
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"smart_switch/internal/models"
)

var ErrInvalidTariff = errors.New("invalid tariff")

// Tariff is an ordered list of marginal pricing bands.
type Tariff struct {
	Currency string        `json:"currency"`
	Tiers    []models.Tier `json:"tiers"`
}

func tier(n, min, max int, rate string) models.Tier {
	return models.Tier{Tier: n, MinUnits: min, MaxUnits: max, Rate: decimal.RequireFromString(rate)}
}

// DefaultTariff is the LESCO residential schedule in PKR/kWh.
func DefaultTariff() Tariff {
	return Tariff{
		Currency: "PKR",
		Tiers: []models.Tier{
			tier(1, 1, 100, "12.21"),
			tier(2, 101, 200, "14.53"),
			tier(3, 201, 300, "31.51"),
			tier(4, 301, 400, "38.41"),
			tier(5, 401, 500, "41.62"),
			tier(6, 501, 600, "43.04"),
			tier(7, 601, 700, "44.18"),
			tier(8, 701, 0, "49.10"),
		},
	}
}

type tariffFile struct {
	Currency string `yaml:"currency"`
	Tiers    []struct {
		Tier     int             `yaml:"tier"`
		MinUnits int             `yaml:"min_units"`
		MaxUnits int             `yaml:"max_units"` // 0 = open-ended
		Rate     decimal.Decimal `yaml:"rate"`
	} `yaml:"tiers"`
}

// LoadTariff reads a YAML tariff table and validates it.
func LoadTariff(r io.Reader) (Tariff, error) {
	var f tariffFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return Tariff{}, fmt.Errorf("decode tariff: %w", err)
	}
	t := Tariff{Currency: f.Currency, Tiers: make([]models.Tier, 0, len(f.Tiers))}
	for i, ft := range f.Tiers {
		n := ft.Tier
		if n == 0 {
			n = i + 1
		}
		t.Tiers = append(t.Tiers, models.Tier{Tier: n, MinUnits: ft.MinUnits, MaxUnits: ft.MaxUnits, Rate: ft.Rate})
	}
	if err := t.Validate(); err != nil {
		return Tariff{}, err
	}
	return t, nil
}

// Validate checks that bands ascend contiguously and only the last is open.
func (t Tariff) Validate() error {
	if len(t.Tiers) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidTariff)
	}
	for i, tr := range t.Tiers {
		last := i == len(t.Tiers)-1
		switch {
		case tr.Rate.IsNegative():
			return fmt.Errorf("%w: tier %d has negative rate", ErrInvalidTariff, tr.Tier)
		case tr.MinUnits < 0:
			return fmt.Errorf("%w: tier %d has negative lower bound", ErrInvalidTariff, tr.Tier)
		case tr.Open() && !last:
			return fmt.Errorf("%w: only the last tier may be open-ended", ErrInvalidTariff)
		case !tr.Open() && tr.MaxUnits < tr.MinUnits:
			return fmt.Errorf("%w: tier %d upper bound below lower bound", ErrInvalidTariff, tr.Tier)
		}
		if i > 0 && tr.MinUnits != t.Tiers[i-1].MaxUnits+1 {
			return fmt.Errorf("%w: tier %d does not follow tier %d", ErrInvalidTariff, tr.Tier, t.Tiers[i-1].Tier)
		}
	}
	return nil
}

// Cost prices a cumulative consumption by walking the bands from zero.
func (t Tariff) Cost(units decimal.Decimal) models.Cost {
	out := models.Cost{TotalCost: decimal.Zero, Breakdown: []models.TierPortion{}}
	remaining := units
	for _, tr := range t.Tiers {
		if !remaining.IsPositive() {
			break
		}
		used := remaining
		if !tr.Open() {
			used = decimal.Min(remaining, decimal.NewFromInt(int64(tr.MaxUnits-tr.MinUnits+1)))
		}
		cost := used.Mul(tr.Rate)
		out.Breakdown = append(out.Breakdown, models.TierPortion{
			Tier:     tr.Tier,
			MinUnits: tr.MinUnits,
			MaxUnits: tr.MaxUnits,
			Units:    used,
			Rate:     tr.Rate,
			Cost:     cost,
		})
		out.TotalCost = out.TotalCost.Add(cost)
		remaining = remaining.Sub(used)
	}
	return out
}

// TierFor returns the band that prices the next unit at this consumption:
// the first band whose upper bound is not below units, else the last band.
func (t Tariff) TierFor(units decimal.Decimal) models.Tier {
	if len(t.Tiers) == 0 {
		return models.Tier{}
	}
	for _, tr := range t.Tiers {
		if tr.Open() || units.LessThanOrEqual(decimal.NewFromInt(int64(tr.MaxUnits))) {
			return tr
		}
	}
	return t.Tiers[len(t.Tiers)-1]
}

// Tips returns cost-saving advice for a monthly consumption.
func Tips(units decimal.Decimal) []models.Tip {
	tips := []models.Tip{}
	if units.GreaterThan(decimal.NewFromInt(300)) {
		tips = append(tips, models.Tip{
			Title:    "High usage",
			Message:  "You are in an expensive band. Cutting usage below 300 units lowers the marginal rate sharply.",
			Priority: "high",
		})
	}
	if units.GreaterThan(decimal.NewFromInt(200)) {
		tips = append(tips, models.Tip{
			Title:    "Shift to off-peak hours",
			Message:  "Run heavy appliances outside peak hours and use timers to schedule them.",
			Priority: "medium",
		})
	}
	if units.GreaterThan(decimal.NewFromInt(100)) {
		tips = append(tips, models.Tip{
			Title:    "Efficient appliances",
			Message:  "LED lighting and inverter appliances keep consumption in the lower bands.",
			Priority: "low",
		})
	}
	return tips
}
