package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smart_switch/internal/models"
)

const (
	sourceManual    = "manual"
	sourceSchedule  = "schedule"
	sourceTimer     = "timer"
	sourceEmergency = "emergency"
)

// RelayChange is an optimistic relay update. Local state already shows Next
// when it is returned; Wait reports whether the store accepted it. On
// failure the local relay falls back to the last confirmed value unless a
// newer change superseded this one.
type RelayChange struct {
	Previous bool
	Next     bool
	Source   string

	// user id of a manual change, 0 otherwise
	actor  int
	gen    uint64
	result chan error
}

func (r *RelayChange) Wait(ctx context.Context) error {
	select {
	case err := <-r.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// relayQueue keeps relay writes in the order they were decided so the
// store ends with the newest value.
type relayQueue struct {
	mu     sync.Mutex
	items  []*RelayChange
	signal chan struct{}
}

func newRelayQueue() *relayQueue {
	return &relayQueue{signal: make(chan struct{}, 1)}
}

func (q *relayQueue) push(rc *RelayChange) {
	q.mu.Lock()
	q.items = append(q.items, rc)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *relayQueue) pop() *RelayChange {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	rc := q.items[0]
	q.items = q.items[1:]
	return rc
}

func (c *Controller) relayWriter(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for rc := c.relayQ.pop(); rc != nil; rc = c.relayQ.pop() {
				rc.result <- ErrControllerStopped
			}
			return
		case <-c.relayQ.signal:
		}
		for rc := c.relayQ.pop(); rc != nil; rc = c.relayQ.pop() {
			err := c.writeKey(keyRelay, statusJSON(rc.Next))
			if perr := c.post(func(s *switchState) { c.settleRelay(s, rc, err) }); perr != nil {
				rc.result <- perr
			}
		}
	}
}

// beginRelay applies a relay change locally and queues the remote write.
func (c *Controller) beginRelay(s *switchState, on bool, source string) *RelayChange {
	s.relayGen++
	rc := &RelayChange{
		Previous: s.relayOn,
		Next:     on,
		Source:   source,
		gen:      s.relayGen,
		result:   make(chan error, 1),
	}
	s.relayOn = on
	s.pendingRelay++
	c.relayQ.push(rc)
	return rc
}

func (c *Controller) settleRelay(s *switchState, rc *RelayChange, err error) {
	s.pendingRelay--
	if err != nil {
		if s.relayGen == rc.gen {
			s.relayOn = s.relayCommitted
		}
		c.log.Errorw("relay_write_failed", "err", err, "value", models.StatusString(rc.Next), "source", rc.Source)
		c.record(models.EventWriteFailed, "Relay write failed", map[string]any{
			"target": keyRelay,
			"value":  models.StatusString(rc.Next),
			"source": rc.Source,
			"error":  err.Error(),
		})
		rc.result <- fmt.Errorf("%w: %v", ErrWriteFailed, err)
		return
	}

	s.relayCommitted = rc.Next
	typ, desc := models.EventRelayOff, "Relay switched off"
	if rc.Next {
		typ, desc = models.EventRelayOn, "Relay switched on"
	}
	meta := map[string]any{"source": rc.Source}
	if rc.actor != 0 {
		meta["user_id"] = rc.actor
	}
	c.record(typ, desc, meta)
	rc.result <- nil
}

// armOverride suspends the scheduler for OverrideTTL. Re-arming supersedes
// the pending expiry.
func (c *Controller) armOverride(s *switchState, now time.Time) {
	c.stopOverride(s)
	s.override = true
	s.overrideUntil = now.Add(c.cfg.OverrideTTL)
	s.overrideGen++
	gen := s.overrideGen
	s.overrideTimer = time.AfterFunc(c.cfg.OverrideTTL, func() {
		_ = c.post(func(s *switchState) { c.expireOverride(s, gen) })
	})
	c.record(models.EventOverrideSet, "Manual override set", map[string]any{"expires_at": s.overrideUntil})
}

func (c *Controller) expireOverride(s *switchState, gen uint64) {
	if !s.override || s.overrideGen != gen {
		return
	}
	s.override = false
	s.overrideTimer = nil
	c.record(models.EventOverrideCleared, "Manual override expired", map[string]any{"reason": "expired"})
	c.runSchedule(s, c.now())
}

func (c *Controller) clearOverride(s *switchState, reason string) {
	if !s.override {
		return
	}
	c.stopOverride(s)
	s.override = false
	s.overrideGen++
	c.record(models.EventOverrideCleared, "Manual override cleared", map[string]any{"reason": reason})
}

func (c *Controller) stopOverride(s *switchState) {
	if s.overrideTimer != nil {
		s.overrideTimer.Stop()
		s.overrideTimer = nil
	}
}

// SetRelay switches the relay by hand. OFF arms the manual override, ON
// clears it. ON is refused while emergency mode is latched.
func (c *Controller) SetRelay(ctx context.Context, on bool) (models.RelayResult, error) {
	return c.manualRelay(ctx, func(*switchState) bool { return on })
}

func (c *Controller) ToggleRelay(ctx context.Context) (models.RelayResult, error) {
	return c.manualRelay(ctx, func(s *switchState) bool { return !s.relayOn })
}

func (c *Controller) manualRelay(ctx context.Context, decide func(*switchState) bool) (models.RelayResult, error) {
	var (
		rc  *RelayChange
		err error
	)
	if derr := c.do(ctx, func(s *switchState) {
		on := decide(s)
		if on && s.emergency {
			err = ErrEmergencyActive
			return
		}
		if on {
			c.clearOverride(s, "manual on")
		} else {
			c.armOverride(s, c.now())
		}
		rc = c.beginRelay(s, on, sourceManual)
		rc.actor, _ = models.UserIDFrom(ctx)
	}); derr != nil {
		return models.RelayResult{}, derr
	}
	if err != nil {
		return models.RelayResult{}, err
	}
	if err := rc.Wait(ctx); err != nil {
		return models.RelayResult{}, err
	}
	return models.RelayResult{Previous: rc.Previous, Current: rc.Next}, nil
}
