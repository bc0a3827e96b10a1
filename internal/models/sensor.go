package models

import "time"

// SensorSnapshot is the merged view of the latest reading on every channel.
// Channels update independently; LastUpdated tracks the newest of them.
type SensorSnapshot struct {
	Voltage     float64   `json:"voltage"`               // V
	Current     float64   `json:"current"`               // A
	Power       float64   `json:"power"`                 // W
	Temperature *float64  `json:"temperature,omitempty"` // °C, nil until reported
	Energy      float64   `json:"energy,omitempty"`      // kWh meter counter, when reported
	LastUpdated time.Time `json:"lastUpdated"`           // zero until the first reading
}
