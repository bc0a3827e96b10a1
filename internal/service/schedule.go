package service

import (
	"context"
	"fmt"
	"time"

	"smart_switch/internal/models"
	"smart_switch/internal/rules"
)

// runSchedule applies one scheduler pass. Nothing happens in emergency mode.
func (c *Controller) runSchedule(s *switchState, now time.Time) {
	if s.emergency {
		return
	}
	d := rules.EvaluateSchedule(rules.ScheduleInput{
		Now:      now,
		Timers:   s.orderedTimers(),
		RelayOn:  s.relayOn,
		Override: s.override,
	}, c.cfg.Location)

	s.activeTimer = d.ActiveTimerID
	for _, m := range d.Mutations {
		c.setTimerFlag(s, m.TimerID, m.Enabled, sourceSchedule)
	}
	if d.RelayWrite(s.relayOn) {
		c.beginRelay(s, *d.Desired, sourceSchedule)
	}
}

// setTimerFlag updates a timer's enabled flag locally and writes it to the
// store. The returned channel yields the write outcome.
func (c *Controller) setTimerFlag(s *switchState, id string, enabled bool, source string) <-chan error {
	res := make(chan error, 1)
	t, ok := s.timers[id]
	if !ok {
		res <- ErrTimerNotFound
		return res
	}
	prev := t.Enabled
	t.Enabled = enabled
	s.timers[id] = t

	go func() {
		err := c.writeKey(timerEnabledKey(id), boolJSON(enabled))
		perr := c.post(func(s *switchState) {
			if err != nil {
				if cur, ok := s.timers[id]; ok && cur.Enabled == enabled {
					cur.Enabled = prev
					s.timers[id] = cur
				}
				c.log.Errorw("timer_write_failed", "err", err, "timer", id)
				c.record(models.EventWriteFailed, "Timer update failed", map[string]any{
					"target": timerEnabledKey(id),
					"error":  err.Error(),
				})
				res <- fmt.Errorf("%w: %v", ErrWriteFailed, err)
				return
			}
			typ, verb := models.EventTimerDisabled, "disabled"
			if enabled {
				typ, verb = models.EventTimerEnabled, "enabled"
			}
			c.record(typ, fmt.Sprintf("Timer %q %s", t.Name, verb), map[string]any{"timer_id": id, "source": source})
			res <- nil
		})
		if perr != nil {
			res <- perr
		}
	}()
	return res
}

// enableTimer toggles a timer by hand. Enabling a timer whose window is open
// right now turns the relay on at once instead of waiting for the next tick.
// The relay is only touched after the store has accepted the flag.
func (c *Controller) enableTimer(ctx context.Context, t models.Timer, enabled bool) (models.Timer, error) {
	var res <-chan error
	err := c.do(ctx, func(s *switchState) {
		if _, ok := s.timers[t.ID]; !ok {
			s.timers[t.ID] = t
		}
		res = c.setTimerFlag(s, t.ID, enabled, sourceManual)
		t = s.timers[t.ID]
	})
	if err != nil {
		return models.Timer{}, err
	}
	select {
	case err := <-res:
		if err != nil {
			return models.Timer{}, err
		}
	case <-ctx.Done():
		return models.Timer{}, ctx.Err()
	}
	if !enabled {
		return t, nil
	}

	err = c.do(ctx, func(s *switchState) {
		cur, ok := s.timers[t.ID]
		if !ok || !cur.Enabled || s.emergency {
			return
		}
		timeMatched, dayMatched := rules.TimerMatch(cur, c.now(), c.cfg.Location)
		if !timeMatched || !dayMatched {
			return
		}
		s.activeTimer = cur.ID
		c.clearOverride(s, "timer enabled")
		if !s.relayOn {
			c.beginRelay(s, true, sourceTimer)
		}
	})
	if err != nil {
		return models.Timer{}, err
	}
	return t, nil
}
