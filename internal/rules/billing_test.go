package rules

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDefaultTariffValid(t *testing.T) {
	require.NoError(t, DefaultTariff().Validate())
}

func TestCost(t *testing.T) {
	tariff := DefaultTariff()

	tests := []struct {
		name  string
		units string
		total string
		bands int
	}{
		{"zero", "0", "0", 0},
		{"negative", "-5", "0", 0},
		{"inside first band", "50", "610.5", 1},
		{"first band full", "100", "1221", 1},
		{"spills into second", "150", "1947.5", 2},
		{"fractional", "100.5", "1228.265", 2},
		{"open band", "800", "27460", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tariff.Cost(d(tt.units))
			assert.True(t, d(tt.total).Equal(got.TotalCost), "total %s, want %s", got.TotalCost, tt.total)
			assert.Len(t, got.Breakdown, tt.bands)
			assert.NotNil(t, got.Breakdown)
		})
	}
}

func TestCostBreakdown(t *testing.T) {
	got := DefaultTariff().Cost(d("150"))
	require.Len(t, got.Breakdown, 2)

	assert.Equal(t, 1, got.Breakdown[0].Tier)
	assert.True(t, d("100").Equal(got.Breakdown[0].Units))
	assert.True(t, d("1221").Equal(got.Breakdown[0].Cost))

	assert.Equal(t, 2, got.Breakdown[1].Tier)
	assert.True(t, d("50").Equal(got.Breakdown[1].Units))
	assert.True(t, d("726.5").Equal(got.Breakdown[1].Cost))
}

func TestTierFor(t *testing.T) {
	tariff := DefaultTariff()
	tests := []struct {
		units string
		tier  int
	}{
		{"0", 1},
		{"1", 1},
		{"100", 1},
		{"100.4", 2},
		{"101", 2},
		{"700", 7},
		{"701", 8},
		{"5000", 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tier, tariff.TierFor(d(tt.units)).Tier, "units %s", tt.units)
	}
}

func TestLoadTariff(t *testing.T) {
	src := `
currency: USD
tiers:
  - min_units: 0
    max_units: 50
    rate: "0.10"
  - min_units: 51
    max_units: 0
    rate: 0.25
`
	tariff, err := LoadTariff(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "USD", tariff.Currency)
	require.Len(t, tariff.Tiers, 2)
	assert.Equal(t, 2, tariff.Tiers[1].Tier)
	assert.True(t, tariff.Tiers[1].Open())
	assert.True(t, d("0.25").Equal(tariff.Tiers[1].Rate))

	// 0..50 holds 51 units.
	assert.True(t, d("7.6").Equal(tariff.Cost(d("61")).TotalCost))
}

func TestLoadTariffRejectsGaps(t *testing.T) {
	src := `
tiers:
  - {min_units: 1, max_units: 100, rate: 1}
  - {min_units: 150, max_units: 0, rate: 2}
`
	_, err := LoadTariff(strings.NewReader(src))
	assert.ErrorIs(t, err, ErrInvalidTariff)

	src = `
tiers:
  - {min_units: 1, max_units: 0, rate: 1}
  - {min_units: 2, max_units: 0, rate: 2}
`
	_, err = LoadTariff(strings.NewReader(src))
	assert.ErrorIs(t, err, ErrInvalidTariff)
}

func TestTips(t *testing.T) {
	assert.Empty(t, Tips(d("80")))
	assert.Len(t, Tips(d("150")), 1)
	assert.Len(t, Tips(d("250")), 2)

	tips := Tips(d("350"))
	require.Len(t, tips, 3)
	assert.Equal(t, "high", tips[0].Priority)
}
