package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smart_switch/internal/logger"
	"smart_switch/internal/models"
	"smart_switch/internal/repository"
	"smart_switch/internal/rules"
)

const inboxSize = 256

// AlertSink receives notifications produced by the controller. It must not
// block.
type AlertSink interface {
	Dispatch(n models.Notification)
}

// switchState is owned by the controller goroutine. Nothing else touches it.
type switchState struct {
	snapshot models.SensorSnapshot
	safety   models.SafetyStatus
	latch    rules.AlertLatch

	relayOn        bool
	relayCommitted bool // last value confirmed by the store
	relayGen       uint64
	pendingRelay   int

	override      bool
	overrideUntil time.Time
	overrideGen   uint64
	overrideTimer *time.Timer

	timers      map[string]models.Timer
	devices     map[string]models.Device
	activeTimer string
	emergency   bool

	today       models.DailyUsage
	lastUsageAt time.Time
}

func (s *switchState) orderedTimers() []models.Timer {
	out := make([]models.Timer, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t)
	}
	sortTimers(out)
	return out
}

func (s *switchState) deviceList() []models.Device {
	out := make([]models.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	sortDevices(out)
	return out
}

// Controller reconciles store pushes, the scheduler tick and user commands
// on a single goroutine. Remote writes run elsewhere and report back through
// the inbox.
type Controller struct {
	store  repository.KVStore
	events repository.EventRepo
	usage  repository.UsageRepo
	alerts AlertSink
	cfg    Config
	log    *logger.Logger
	now    func() time.Time

	inbox  chan func(*switchState)
	done   chan struct{}
	relayQ *relayQueue
	runCtx context.Context
	state  switchState
}

func NewController(store repository.KVStore, events repository.EventRepo, usage repository.UsageRepo,
	alerts AlertSink, cfg Config, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		store:  store,
		events: events,
		usage:  usage,
		alerts: alerts,
		cfg:    cfg.withDefaults(),
		log:    log,
		now:    time.Now,
		inbox:  make(chan func(*switchState), inboxSize),
		done:   make(chan struct{}),
		relayQ: newRelayQueue(),
		runCtx: context.Background(),
		state: switchState{
			timers:  make(map[string]models.Timer),
			devices: make(map[string]models.Device),
		},
	}
}

// Run loads the current state, subscribes to the store and processes events
// until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	c.runCtx = ctx

	watched := append([]string{keyRelay, prefixTimers, prefixDevices}, sensorKeys...)
	for _, prefix := range watched {
		ch, err := c.store.Subscribe(ctx, prefix)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", prefix, err)
		}
		go c.forward(ch)
	}

	if err := c.bootstrap(ctx, &c.state); err != nil {
		c.log.Warnw("controller_bootstrap", "err", err)
	}
	go c.relayWriter(ctx)

	poll := time.NewTicker(c.cfg.PollInterval)
	defer poll.Stop()
	usage := time.NewTicker(c.cfg.UsageInterval)
	defer usage.Stop()

	c.tick(&c.state, c.now())
	for {
		select {
		case <-ctx.Done():
			c.stopOverride(&c.state)
			return nil
		case fn := <-c.inbox:
			fn(&c.state)
		case <-poll.C:
			c.tick(&c.state, c.now())
		case <-usage.C:
			c.integrateUsage(&c.state, c.now())
		}
	}
}

func (c *Controller) forward(ch <-chan repository.Change) {
	for change := range ch {
		if err := c.post(func(s *switchState) { c.applyChange(s, change) }); err != nil {
			return
		}
	}
}

// post queues fn for the controller goroutine without waiting for it.
func (c *Controller) post(fn func(*switchState)) error {
	select {
	case c.inbox <- fn:
		return nil
	case <-c.done:
		return ErrControllerStopped
	}
}

// do runs fn on the controller goroutine and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func(*switchState)) error {
	ran := make(chan struct{})
	wrapped := func(s *switchState) {
		defer close(ran)
		fn(s)
	}
	select {
	case c.inbox <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrControllerStopped
	}
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrControllerStopped
		}
	}
}

func (c *Controller) bootstrap(ctx context.Context, s *switchState) error {
	var errs []error
	for _, key := range sensorKeys {
		raw, err := c.store.Get(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if raw != nil {
			c.applySensor(s, key, raw, time.Time{})
		}
	}

	if raw, err := c.store.Get(ctx, keyRelay); err != nil {
		errs = append(errs, err)
	} else if on, ok := decodeSwitch(raw); ok {
		s.relayOn, s.relayCommitted = on, on
	}

	if recs, err := c.store.List(ctx, prefixTimers); err != nil {
		errs = append(errs, err)
	} else {
		for id, raw := range recs {
			c.applyTimer(s, id, raw)
		}
	}
	if recs, err := c.store.List(ctx, prefixDevices); err != nil {
		errs = append(errs, err)
	} else {
		for id, raw := range recs {
			c.applyDevice(s, id, raw)
		}
	}

	day := c.now().In(c.cfg.Location).Format(dayLayout)
	if u, err := c.usage.Get(ctx, day); err != nil {
		errs = append(errs, err)
		s.today = models.DailyUsage{Day: day}
	} else {
		s.today = u
	}
	return errors.Join(errs...)
}

// tick is the periodic pass: safety first so the offline condition is seen
// without new readings, then the scheduler.
func (c *Controller) tick(s *switchState, now time.Time) {
	c.evaluateSafety(s, now)
	c.runSchedule(s, now)
}

func (c *Controller) applyChange(s *switchState, ch repository.Change) {
	now := c.now()
	switch {
	case isSensorKey(ch.Key):
		c.applySensor(s, ch.Key, ch.Value, now)
		c.evaluateSafety(s, now)
	case ch.Key == keyRelay:
		on, ok := decodeSwitch(ch.Value)
		if !ok {
			return
		}
		s.relayCommitted = on
		if s.pendingRelay == 0 {
			s.relayOn = on
		}
	default:
		if id := childID(ch.Key, prefixTimers); id != "" {
			if ch.Value == nil {
				delete(s.timers, id)
				return
			}
			c.applyTimer(s, id, ch.Value)
		} else if id := childID(ch.Key, prefixDevices); id != "" {
			if ch.Value == nil {
				delete(s.devices, id)
				return
			}
			c.applyDevice(s, id, ch.Value)
		}
	}
}

func isSensorKey(key string) bool {
	for _, k := range sensorKeys {
		if k == key {
			return true
		}
	}
	return false
}

// applySensor updates one channel of the snapshot. A zero now leaves
// LastUpdated alone (values restored from the store are not live readings).
func (c *Controller) applySensor(s *switchState, key string, raw json.RawMessage, now time.Time) {
	if raw == nil {
		if key == keyTemperature {
			s.snapshot.Temperature = nil
		}
		return
	}
	v, ok := decodeFloat(raw)
	if !ok {
		c.log.Warnw("sensor_value_invalid", "key", key, "value", string(raw))
		return
	}
	switch key {
	case keyVoltage:
		s.snapshot.Voltage = v
	case keyCurrent:
		s.snapshot.Current = v
	case keyPower:
		s.snapshot.Power = v
	case keyTemperature:
		s.snapshot.Temperature = &v
	case keyEnergy:
		s.snapshot.Energy = v
	}
	if !now.IsZero() {
		s.snapshot.LastUpdated = now
	}
}

func (c *Controller) applyTimer(s *switchState, id string, raw json.RawMessage) {
	t, err := decodeTimer(id, raw)
	if err != nil {
		c.log.Warnw("timer_record_invalid", "id", id, "err", err)
		return
	}
	s.timers[id] = t
}

func (c *Controller) applyDevice(s *switchState, id string, raw json.RawMessage) {
	d, err := decodeDevice(id, raw)
	if err != nil {
		c.log.Warnw("device_record_invalid", "id", id, "err", err)
		return
	}
	s.devices[id] = d
}

// record appends to the event log; failures are logged, never returned.
func (c *Controller) record(typ, desc string, meta map[string]any) {
	ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.WriteTimeout)
	defer cancel()
	err := c.events.Append(ctx, models.SwitchEvent{
		OccurredAt:  c.now(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		c.log.Errorw("event_append_failed", "type", typ, "err", err)
	}
}

func (c *Controller) dispatch(n models.Notification) {
	if c.alerts != nil {
		c.alerts.Dispatch(n)
	}
}

// writeKey performs one store write off the controller goroutine.
func (c *Controller) writeKey(key string, value json.RawMessage) error {
	ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.WriteTimeout)
	defer cancel()
	return c.store.Set(ctx, key, value)
}

// Emergency reports whether emergency mode is latched.
func (c *Controller) Emergency(ctx context.Context) (bool, error) {
	var on bool
	err := c.do(ctx, func(s *switchState) { on = s.emergency })
	return on, err
}

// Dashboard returns a consistent copy of the controller state.
func (c *Controller) Dashboard(ctx context.Context) (models.Dashboard, error) {
	var d models.Dashboard
	err := c.do(ctx, func(s *switchState) {
		now := c.now()
		d = models.Dashboard{
			RelayOn:       s.relayOn,
			Override:      models.OverrideState{Active: s.override},
			Emergency:     s.emergency,
			Snapshot:      s.snapshot,
			Safety:        rules.EvaluateSafety(c.cfg.Thresholds, s.snapshot, now),
			Timers:        s.orderedTimers(),
			ActiveTimerID: s.activeTimer,
			Devices:       s.deviceList(),
			Today:         s.today,
			UpdatedAt:     now,
		}
		if s.override {
			d.Override.ExpiresAt = s.overrideUntil
		}
	})
	if err != nil {
		return models.Dashboard{}, err
	}

	month, err := c.monthToDate(ctx, d.Today)
	if err != nil {
		c.log.Warnw("month_usage_failed", "err", err)
	}
	d.MonthKWh = month
	d.CurrentTier = c.cfg.Tariff.TierFor(decimalKWh(month))
	return d, nil
}
