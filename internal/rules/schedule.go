package rules

import (
	"time"

	"smart_switch/internal/models"
)

// MinuteOfDay returns t's minute of day (0..1439) in its own location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// WindowContains reports whether minute lies in [start, end]. A window whose
// end is not after its start crosses midnight.
func WindowContains(start, end, minute int) bool {
	if end > start {
		return start <= minute && minute <= end
	}
	return minute >= start || minute <= end
}

// TimerMatch evaluates one timer at now, with times read in loc.
func TimerMatch(t models.Timer, now time.Time, loc *time.Location) (timeMatched, dayMatched bool) {
	local := now.In(loc)
	start := MinuteOfDay(t.StartTime.In(loc))
	end := MinuteOfDay(t.EndTime.In(loc))
	return WindowContains(start, end, MinuteOfDay(local)), t.HasDay(int(local.Weekday()))
}

// TimerMutation sets a timer's enabled flag.
type TimerMutation struct {
	TimerID string
	Enabled bool
}

// ScheduleInput is everything one scheduler pass looks at.
type ScheduleInput struct {
	Now      time.Time
	Timers   []models.Timer // evaluated in order, first match wins
	RelayOn  bool
	Override bool
}

// ScheduleDecision is the result of one scheduler pass.
type ScheduleDecision struct {
	ActiveTimerID string
	Mutations     []TimerMutation
	// Desired is nil when the scheduler has no opinion about the relay.
	Desired *bool
}

// RelayWrite reports whether the decision requires writing the relay.
func (d ScheduleDecision) RelayWrite(relayOn bool) bool {
	return d.Desired != nil && *d.Desired != relayOn
}

// EvaluateSchedule runs one scheduler pass.
func EvaluateSchedule(in ScheduleInput, loc *time.Location) ScheduleDecision {
	if loc == nil {
		loc = time.Local
	}
	var d ScheduleDecision
	anyEnabled := false
	for _, t := range in.Timers {
		if t.Enabled {
			anyEnabled = true
		}
		if d.ActiveTimerID != "" {
			continue
		}
		timeMatched, dayMatched := TimerMatch(t, in.Now, loc)
		switch {
		case timeMatched && dayMatched:
			if !t.Enabled {
				d.Mutations = append(d.Mutations, TimerMutation{TimerID: t.ID, Enabled: true})
			}
			d.ActiveTimerID = t.ID
		case t.Enabled && dayMatched:
			d.Mutations = append(d.Mutations, TimerMutation{TimerID: t.ID, Enabled: false})
		}
	}

	switch {
	case d.ActiveTimerID != "":
		if !in.Override {
			on := true
			d.Desired = &on
		}
	case anyEnabled && in.RelayOn && !in.Override:
		off := false
		d.Desired = &off
	}
	return d
}
