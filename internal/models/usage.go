package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyUsage is the energy drawn through the relay on one local calendar day.
type DailyUsage struct {
	Day       string          `json:"day"` // YYYY-MM-DD
	EnergyKWh float64         `json:"energyKWh"`
	Cost      decimal.Decimal `json:"cost"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
