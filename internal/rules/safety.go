package rules

import (
	"fmt"
	"time"

	"smart_switch/internal/models"
)

// Conditions lists every alert condition in reporting order.
var Conditions = []models.AlertCondition{
	models.ConditionOvervoltage,
	models.ConditionUndervoltage,
	models.ConditionOvercurrent,
	models.ConditionHighPower,
	models.ConditionOvertemperature,
	models.ConditionDeviceOffline,
}

// EvaluateSafety maps a snapshot to its safety status. All rules are checked
// independently, so one reading may raise several alerts.
func EvaluateSafety(th Thresholds, s models.SensorSnapshot, now time.Time) models.SafetyStatus {
	alerts := make([]models.Alert, 0, len(Conditions))

	if s.Voltage > th.MaxVoltage {
		alerts = append(alerts, models.Alert{
			Condition: models.ConditionOvervoltage,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Overvoltage: %.1fV exceeds %.0fV", s.Voltage, th.MaxVoltage),
			Value:     s.Voltage,
			Limit:     th.MaxVoltage,
		})
	}
	// 0 V means the line is dead or the device is off, not a brown-out.
	if s.Voltage > 0 && s.Voltage < th.MinVoltage {
		alerts = append(alerts, models.Alert{
			Condition: models.ConditionUndervoltage,
			Severity:  models.SeverityWarning,
			Message:   fmt.Sprintf("Undervoltage: %.1fV below %.0fV", s.Voltage, th.MinVoltage),
			Value:     s.Voltage,
			Limit:     th.MinVoltage,
		})
	}
	if s.Current > th.MaxCurrent {
		alerts = append(alerts, models.Alert{
			Condition: models.ConditionOvercurrent,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Overcurrent: %.2fA exceeds %.0fA", s.Current, th.MaxCurrent),
			Value:     s.Current,
			Limit:     th.MaxCurrent,
		})
	}
	if s.Power > th.MaxPower {
		alerts = append(alerts, models.Alert{
			Condition: models.ConditionHighPower,
			Severity:  models.SeverityWarning,
			Message:   fmt.Sprintf("High power: %.0fW exceeds %.0fW", s.Power, th.MaxPower),
			Value:     s.Power,
			Limit:     th.MaxPower,
		})
	}
	if s.Temperature != nil && *s.Temperature > th.MaxTemperature {
		alerts = append(alerts, models.Alert{
			Condition: models.ConditionOvertemperature,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Overtemperature: %.1f°C exceeds %.0f°C", *s.Temperature, th.MaxTemperature),
			Value:     *s.Temperature,
			Limit:     th.MaxTemperature,
		})
	}
	if !s.LastUpdated.IsZero() {
		if idle := now.Sub(s.LastUpdated); idle > th.OfflineTimeout {
			alerts = append(alerts, models.Alert{
				Condition: models.ConditionDeviceOffline,
				Severity:  models.SeverityWarning,
				Message:   fmt.Sprintf("Device offline: no reading for %s", idle.Truncate(time.Second)),
				Value:     idle.Seconds(),
				Limit:     th.OfflineTimeout.Seconds(),
			})
		}
	}

	status := models.SafetyStatus{
		Status:      models.SeveritySafe,
		Alerts:      alerts,
		Action:      models.ActionNone,
		EvaluatedAt: now,
	}
	for _, a := range alerts {
		if a.Severity.Rank() > status.Status.Rank() {
			status.Status = a.Severity
		}
	}

	switch status.Status {
	case models.SeverityCritical:
		status.Action = models.ActionEmergencyShutdown
		status.Message = fmt.Sprintf("Critical: %d issue(s) detected, emergency shutdown required", len(alerts))
	case models.SeverityWarning:
		status.Action = models.ActionNotify
		status.Message = fmt.Sprintf("Warning: %d issue(s) detected", len(alerts))
	default:
		status.Message = "All systems safe"
	}
	return status
}
