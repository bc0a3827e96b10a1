package models

import "time"

type Severity string

const (
	SeveritySafe     Severity = "safe"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so the highest one can be picked.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

type SafetyAction string

const (
	ActionNone              SafetyAction = "NONE"
	ActionNotify            SafetyAction = "NOTIFY"
	ActionEmergencyShutdown SafetyAction = "EMERGENCY_SHUTDOWN"
)

type AlertCondition string

const (
	ConditionOvervoltage     AlertCondition = "overvoltage"
	ConditionUndervoltage    AlertCondition = "undervoltage"
	ConditionOvercurrent     AlertCondition = "overcurrent"
	ConditionHighPower       AlertCondition = "high_power"
	ConditionOvertemperature AlertCondition = "overtemperature"
	ConditionDeviceOffline   AlertCondition = "device_offline"
)

// Alert is one triggered safety condition.
type Alert struct {
	Condition AlertCondition `json:"condition"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Value     float64        `json:"value"` // measured value (seconds since update for offline)
	Limit     float64        `json:"limit"`
}

// SafetyStatus is derived from a SensorSnapshot and never persisted.
type SafetyStatus struct {
	Status      Severity     `json:"status"`
	Message     string       `json:"message"`
	Alerts      []Alert      `json:"alerts"`
	Action      SafetyAction `json:"action"`
	EvaluatedAt time.Time    `json:"evaluatedAt"`
}

// Has reports whether the status carries an alert for condition c.
func (s SafetyStatus) Has(c AlertCondition) bool {
	for _, a := range s.Alerts {
		if a.Condition == c {
			return true
		}
	}
	return false
}
