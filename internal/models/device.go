package models

const (
	StatusOn  = "on"
	StatusOff = "off"
)

// Device is a controllable outlet stored under devices/<id>.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status"` // on | off
}

func (d Device) IsOn() bool { return d.Status == StatusOn }

// StatusString maps a boolean switch position to its stored form.
func StatusString(on bool) string {
	if on {
		return StatusOn
	}
	return StatusOff
}
