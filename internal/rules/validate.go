package rules

import (
	"errors"
	"sort"
	"strings"

	"smart_switch/internal/models"
)

var (
	ErrTimerName  = errors.New("timer name is required")
	ErrTimerDays  = errors.New("select at least one day")
	ErrTimerDay   = errors.New("days must be between 0 (Sunday) and 6 (Saturday)")
	ErrTimerRange = errors.New("end time must be after start time")
)

// ValidateTimer rejects timers that must never reach the scheduler. Days are
// sorted and de-duplicated in place. An overnight window is expressed with an
// end instant on the following day.
func ValidateTimer(t *models.Timer) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return ErrTimerName
	}
	if len(t.Days) == 0 {
		return ErrTimerDays
	}
	seen := make(map[int]bool, len(t.Days))
	days := t.Days[:0]
	for _, d := range t.Days {
		if d < 0 || d > 6 {
			return ErrTimerDay
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Ints(days)
	t.Days = days
	if !t.EndTime.After(t.StartTime) {
		return ErrTimerRange
	}
	return nil
}
