package models

import "time"

const (
	EventRelayOn           = "RELAY_ON"
	EventRelayOff          = "RELAY_OFF"
	EventOverrideSet       = "OVERRIDE_SET"
	EventOverrideCleared   = "OVERRIDE_CLEARED"
	EventTimerEnabled      = "TIMER_ENABLED"
	EventTimerDisabled     = "TIMER_DISABLED"
	EventTimerCreated      = "TIMER_CREATED"
	EventTimerDeleted      = "TIMER_DELETED"
	EventAlert             = "ALERT"
	EventRecovered         = "RECOVERED"
	EventEmergencyShutdown = "EMERGENCY_SHUTDOWN"
	EventEmergencyReset    = "EMERGENCY_RESET"
	EventWriteFailed       = "WRITE_FAILED"
)

// SwitchEvent is a single log entry.
type SwitchEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // one of the Event* constants
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
