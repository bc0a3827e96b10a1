package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"smart_switch/internal/models"
	"smart_switch/internal/rules"
)

// evaluateSafety recomputes the status from the merged snapshot, emits edge
// notifications and latches emergency mode on the first critical reading.
func (c *Controller) evaluateSafety(s *switchState, now time.Time) {
	s.safety = rules.EvaluateSafety(c.cfg.Thresholds, s.snapshot, now)

	for _, n := range s.latch.Update(s.safety, now) {
		typ := models.EventAlert
		if n.Kind == models.NotificationRecovered {
			typ = models.EventRecovered
		}
		c.record(typ, n.Title, map[string]any{"condition": n.Condition, "value": n.Value, "message": n.Body})
		c.dispatch(n)
	}

	if s.safety.Action == models.ActionEmergencyShutdown && !s.emergency {
		c.log.Warnw("emergency_shutdown", "reason", "automatic", "status", s.safety.Message)
		c.startShutdown(s, "automatic", now)
	}
}

// startShutdown latches emergency mode and switches the relay and every
// known device off. The report is delivered once all writes finished.
func (c *Controller) startShutdown(s *switchState, reason string, now time.Time) <-chan models.FanOutReport {
	s.emergency = true
	c.stopOverride(s)
	s.override = false
	s.activeTimer = ""

	rc := c.beginRelay(s, false, sourceEmergency)
	targets := make(map[string]json.RawMessage, len(s.devices))
	for id := range s.devices {
		targets[deviceStatusKey(id)] = statusJSON(false)
	}
	safety := s.safety

	out := make(chan models.FanOutReport, 1)
	go func() {
		ctx := c.runCtx
		report := fanOut(ctx, c.store, targets, c.cfg.WriteTimeout)
		if err := rc.Wait(ctx); err != nil {
			if report.Failed == nil {
				report.Failed = make(map[string]string)
			}
			report.Failed[keyRelay] = err.Error()
		} else {
			report.Succeeded = append([]string{keyRelay}, report.Succeeded...)
		}
		report.Outcome = outcomeOf(report)
		report.StartedAt = now
		report.FinishedAt = c.now()

		_ = c.post(func(*switchState) { c.reportShutdown(reason, safety, report) })
		out <- report
	}()
	return out
}

func (c *Controller) reportShutdown(reason string, safety models.SafetyStatus, r models.FanOutReport) {
	meta := map[string]any{
		"reason":    reason,
		"outcome":   r.Outcome,
		"succeeded": r.Succeeded,
	}
	if len(r.Failed) > 0 {
		meta["failed"] = r.Failed
	}
	if reason == "automatic" {
		meta["status"] = safety.Message
	}

	body := "All outputs switched off."
	if r.Outcome != models.FanOutComplete {
		failed := make([]string, 0, len(r.Failed))
		for k := range r.Failed {
			failed = append(failed, k)
		}
		sort.Strings(failed)
		body = fmt.Sprintf("Shutdown incomplete (%s): could not switch off %s.", r.Outcome, strings.Join(failed, ", "))
		c.log.Errorw("emergency_shutdown_incomplete", "outcome", r.Outcome, "failed", r.Failed)
	}

	c.record(models.EventEmergencyShutdown, "Emergency shutdown ("+reason+")", meta)
	c.dispatch(models.Notification{
		Kind:       models.NotificationEmergency,
		Title:      "Emergency shutdown",
		Body:       body,
		OccurredAt: r.FinishedAt,
	})
}

// EmergencyShutdown forces every output off and latches emergency mode.
// It returns ErrShutdownIncomplete, together with the report, when any
// target could not be switched.
func (c *Controller) EmergencyShutdown(ctx context.Context) (models.FanOutReport, error) {
	var out <-chan models.FanOutReport
	if err := c.do(ctx, func(s *switchState) {
		c.log.Warnw("emergency_shutdown", "reason", "manual")
		out = c.startShutdown(s, "manual", c.now())
	}); err != nil {
		return models.FanOutReport{}, err
	}
	select {
	case r := <-out:
		if r.Outcome != models.FanOutComplete {
			return r, ErrShutdownIncomplete
		}
		return r, nil
	case <-ctx.Done():
		return models.FanOutReport{}, ctx.Err()
	}
}

// ResetEmergency clears the emergency latch; automatic control resumes on
// the next tick.
func (c *Controller) ResetEmergency(ctx context.Context) error {
	return c.do(ctx, func(s *switchState) {
		if !s.emergency {
			return
		}
		s.emergency = false
		c.record(models.EventEmergencyReset, "Emergency mode reset", nil)
	})
}

// SafetyStatus evaluates the current snapshot at the current time.
func (c *Controller) SafetyStatus(ctx context.Context) (models.SafetyStatus, error) {
	var st models.SafetyStatus
	err := c.do(ctx, func(s *switchState) {
		st = rules.EvaluateSafety(c.cfg.Thresholds, s.snapshot, c.now())
	})
	return st, err
}
