package models

import "time"

// Timer is a weekly relay schedule stored under timers/<id>.
// Only the time-of-day of StartTime/EndTime is significant; an EndTime whose
// time-of-day is not after StartTime's marks a window crossing midnight.
type Timer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Days         []int     `json:"days"` // 0=Sunday .. 6=Saturday
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"createdAt"`
	ScheduleType string    `json:"scheduleType,omitempty"` // kept for the app, not interpreted
	DayType      string    `json:"dayType,omitempty"`
}

// HasDay reports whether the timer applies on weekday d.
func (t Timer) HasDay(d int) bool {
	for _, day := range t.Days {
		if day == d {
			return true
		}
	}
	return false
}
