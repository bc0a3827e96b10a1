package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smart_switch/internal/logger"
	"smart_switch/internal/models"
	"smart_switch/internal/repository"
	"smart_switch/internal/rules"
)

// timerSwitch is the part of the controller that flips timers.
type timerSwitch interface {
	enableTimer(ctx context.Context, t models.Timer, enabled bool) (models.Timer, error)
}

// TimerService stores timer definitions. Enabling goes through the
// controller so an open window takes effect immediately.
type TimerService struct {
	store  repository.KVStore
	events repository.EventRepo
	ctl    timerSwitch
	log    *logger.Logger
	now    func() time.Time
}

func NewTimerService(store repository.KVStore, events repository.EventRepo, ctl timerSwitch, log *logger.Logger) *TimerService {
	if log == nil {
		log = logger.Nop()
	}
	return &TimerService{store: store, events: events, ctl: ctl, log: log, now: time.Now}
}

// ListTimers returns timers in evaluation order.
func (s *TimerService) ListTimers(ctx context.Context) ([]models.Timer, error) {
	recs, err := s.store.List(ctx, prefixTimers)
	if err != nil {
		return nil, err
	}
	out := make([]models.Timer, 0, len(recs))
	for id, raw := range recs {
		t, err := decodeTimer(id, raw)
		if err != nil {
			s.log.Warnw("timer_record_invalid", "id", id, "err", err)
			continue
		}
		out = append(out, t)
	}
	sortTimers(out)
	return out, nil
}

func (s *TimerService) CreateTimer(ctx context.Context, t models.Timer) (models.Timer, error) {
	if err := rules.ValidateTimer(&t); err != nil {
		return models.Timer{}, fmt.Errorf("%w: %w", ErrInvalidTimer, err)
	}
	t.ID = uuid.NewString()
	t.CreatedAt = s.now().UTC()

	raw, err := json.Marshal(t)
	if err != nil {
		return models.Timer{}, err
	}
	if err := s.store.Set(ctx, timerKey(t.ID), raw); err != nil {
		return models.Timer{}, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	s.record(ctx, models.EventTimerCreated, fmt.Sprintf("Timer %q created", t.Name), t.ID)
	return t, nil
}

func (s *TimerService) DeleteTimer(ctx context.Context, id string) error {
	t, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, timerKey(id), nil); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	s.record(ctx, models.EventTimerDeleted, fmt.Sprintf("Timer %q deleted", t.Name), id)
	return nil
}

func (s *TimerService) SetTimerEnabled(ctx context.Context, id string, enabled bool) (models.Timer, error) {
	t, err := s.get(ctx, id)
	if err != nil {
		return models.Timer{}, err
	}
	return s.ctl.enableTimer(ctx, t, enabled)
}

func (s *TimerService) get(ctx context.Context, id string) (models.Timer, error) {
	raw, err := s.store.Get(ctx, timerKey(id))
	if err != nil {
		return models.Timer{}, err
	}
	if raw == nil {
		return models.Timer{}, ErrTimerNotFound
	}
	return decodeTimer(id, raw)
}

func (s *TimerService) record(ctx context.Context, typ, desc, id string) {
	err := s.events.Append(ctx, models.SwitchEvent{
		OccurredAt:  s.now(),
		Type:        typ,
		Description: desc,
		Metadata:    map[string]any{"timer_id": id},
	})
	if err != nil {
		s.log.Errorw("event_append_failed", "type", typ, "err", err)
	}
}
