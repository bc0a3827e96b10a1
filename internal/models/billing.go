package models

import "github.com/shopspring/decimal"

// Tier is one marginal pricing band. MaxUnits == 0 marks the open-ended band.
type Tier struct {
	Tier     int             `json:"tier"`
	MinUnits int             `json:"minUnits"`
	MaxUnits int             `json:"maxUnits,omitempty"`
	Rate     decimal.Decimal `json:"rate"` // currency per kWh
}

func (t Tier) Open() bool { return t.MaxUnits == 0 }

// TierPortion is the share of a consumption billed inside one band.
type TierPortion struct {
	Tier     int             `json:"tier"`
	MinUnits int             `json:"minUnits"`
	MaxUnits int             `json:"maxUnits,omitempty"`
	Units    decimal.Decimal `json:"units"`
	Rate     decimal.Decimal `json:"rate"`
	Cost     decimal.Decimal `json:"cost"`
}

// Cost is the tiered price of a cumulative consumption.
type Cost struct {
	TotalCost decimal.Decimal `json:"totalCost"`
	Breakdown []TierPortion   `json:"breakdown"`
}

type Tip struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"` // high | medium | low
}

// Quote is what the API returns for a consumption figure.
type Quote struct {
	Units    decimal.Decimal `json:"units"`
	Currency string          `json:"currency"`
	Cost
	Display     string `json:"display"` // total rounded to 2 places
	CurrentTier Tier   `json:"currentTier"`
	Tips        []Tip  `json:"tips"`
}
