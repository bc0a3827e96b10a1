package models

import "time"

type OverrideState struct {
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Dashboard is the full controller view served to the app.
type Dashboard struct {
	RelayOn       bool           `json:"relayOn"`
	Override      OverrideState  `json:"override"`
	Emergency     bool           `json:"emergency"`
	Snapshot      SensorSnapshot `json:"snapshot"`
	Safety        SafetyStatus   `json:"safety"`
	Timers        []Timer        `json:"timers"`
	ActiveTimerID string         `json:"activeTimerId,omitempty"`
	Devices       []Device       `json:"devices"`
	Today         DailyUsage     `json:"today"`
	MonthKWh      float64        `json:"monthKWh"`
	CurrentTier   Tier           `json:"currentTier"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// RelayResult reports a confirmed manual relay change.
type RelayResult struct {
	Previous bool `json:"previous"`
	Current  bool `json:"current"`
}
