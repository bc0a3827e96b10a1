package models

import "time"

type NotificationKind string

const (
	NotificationAlert     NotificationKind = "ALERT"
	NotificationRecovered NotificationKind = "RECOVERED"
	NotificationEmergency NotificationKind = "EMERGENCY"
	NotificationInfo      NotificationKind = "INFO"
)

// Notification is a user-facing notice produced by the controller.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	Condition  AlertCondition   `json:"condition,omitempty"`
	Title      string           `json:"title"`
	Body       string           `json:"body"`
	Value      float64          `json:"value,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}
