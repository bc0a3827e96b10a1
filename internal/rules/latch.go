package rules

import (
	"time"

	"smart_switch/internal/models"
)

var recoveredTitles = map[models.AlertCondition]string{
	models.ConditionOvervoltage:     "Voltage back to normal",
	models.ConditionUndervoltage:    "Voltage back to normal",
	models.ConditionOvercurrent:     "Current back to normal",
	models.ConditionHighPower:       "Power back to normal",
	models.ConditionOvertemperature: "Temperature back to normal",
	models.ConditionDeviceOffline:   "Device back online",
}

var alertTitles = map[models.AlertCondition]string{
	models.ConditionOvervoltage:     "High voltage",
	models.ConditionUndervoltage:    "Low voltage",
	models.ConditionOvercurrent:     "High current",
	models.ConditionHighPower:       "High power usage",
	models.ConditionOvertemperature: "High temperature",
	models.ConditionDeviceOffline:   "Device offline",
}

// AlertLatch turns level-triggered alerts into edge-triggered notifications.
// The zero value is ready to use. It is not safe for concurrent use.
type AlertLatch struct {
	sent map[models.AlertCondition]bool
}

// Update compares status against the latched conditions and returns one
// notification per condition that started or stopped since the last call.
func (l *AlertLatch) Update(status models.SafetyStatus, now time.Time) []models.Notification {
	if l.sent == nil {
		l.sent = make(map[models.AlertCondition]bool, len(Conditions))
	}

	active := make(map[models.AlertCondition]models.Alert, len(status.Alerts))
	for _, a := range status.Alerts {
		active[a.Condition] = a
	}

	var out []models.Notification
	for _, c := range Conditions {
		a, on := active[c]
		switch {
		case on && !l.sent[c]:
			l.sent[c] = true
			out = append(out, models.Notification{
				Kind:       models.NotificationAlert,
				Condition:  c,
				Title:      alertTitles[c],
				Body:       a.Message,
				Value:      a.Value,
				OccurredAt: now,
			})
		case !on && l.sent[c]:
			l.sent[c] = false
			out = append(out, models.Notification{
				Kind:       models.NotificationRecovered,
				Condition:  c,
				Title:      recoveredTitles[c],
				Body:       recoveredTitles[c],
				OccurredAt: now,
			})
		}
	}
	return out
}

// Latched reports whether a notification for c is outstanding.
func (l *AlertLatch) Latched(c models.AlertCondition) bool {
	return l.sent[c]
}
