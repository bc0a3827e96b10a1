// Package rules holds the pure decision logic of the switch: safety
// evaluation, alert latching, tiered billing and timer scheduling.
package rules

import "time"

// Thresholds are the fixed safety limits.
type Thresholds struct {
	MinVoltage     float64
	MaxVoltage     float64
	MaxCurrent     float64
	MaxPower       float64
	MaxTemperature float64
	OfflineTimeout time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinVoltage:     180,
		MaxVoltage:     250,
		MaxCurrent:     10,
		MaxPower:       1500,
		MaxTemperature: 60,
		OfflineTimeout: 30 * time.Second,
	}
}
