package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"smart_switch/internal/models"
	"smart_switch/internal/repository"
)

const dayLayout = "2006-01-02"

func decimalKWh(kwh float64) decimal.Decimal {
	return decimal.NewFromFloat(kwh)
}

// integrateUsage adds the energy drawn since the previous tick to today's
// total and persists it. Stale readings (device offline) are not counted.
func (c *Controller) integrateUsage(s *switchState, now time.Time) {
	day := now.In(c.cfg.Location).Format(dayLayout)
	if s.today.Day != day {
		ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.WriteTimeout)
		u, err := c.usage.Get(ctx, day)
		cancel()
		if err != nil {
			c.log.Warnw("usage_load_failed", "day", day, "err", err)
			u = models.DailyUsage{Day: day}
		}
		s.today = u
	}

	if !s.lastUsageAt.IsZero() && s.relayOn && s.snapshot.Power > 0 &&
		!s.safety.Has(models.ConditionDeviceOffline) {
		elapsed := now.Sub(s.lastUsageAt)
		// a stalled loop is not evidence of consumption
		if limit := 3 * c.cfg.UsageInterval; elapsed > limit {
			elapsed = limit
		}
		if elapsed > 0 {
			s.today.EnergyKWh += s.snapshot.Power / 1000 * elapsed.Hours()
		}
	}
	s.lastUsageAt = now
	s.today.Cost = c.cfg.Tariff.Cost(decimalKWh(s.today.EnergyKWh)).TotalCost
	s.today.UpdatedAt = now

	ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.WriteTimeout)
	defer cancel()
	if err := c.usage.Upsert(ctx, s.today); err != nil {
		c.log.Errorw("usage_save_failed", "day", day, "err", err)
	}
}

// monthToDate sums stored days of today's month, with today taken live.
func (c *Controller) monthToDate(ctx context.Context, today models.DailyUsage) (float64, error) {
	if today.Day == "" {
		return 0, nil
	}
	first := today.Day[:len("2006-01")] + "-01"
	days, err := c.usage.Range(ctx, first, today.Day)
	if err != nil {
		return today.EnergyKWh, err
	}
	total := today.EnergyKWh
	for _, d := range days {
		if d.Day != today.Day {
			total += d.EnergyKWh
		}
	}
	return total, nil
}

type UsageService struct {
	repo repository.UsageRepo
}

func NewUsageService(repo repository.UsageRepo) *UsageService {
	return &UsageService{repo: repo}
}

// History returns recorded days in [from, to], both YYYY-MM-DD.
func (s *UsageService) History(ctx context.Context, from, to string) ([]models.DailyUsage, error) {
	f, err := time.Parse(dayLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: from: %v", ErrInvalidRange, err)
	}
	t, err := time.Parse(dayLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: to: %v", ErrInvalidRange, err)
	}
	if f.After(t) {
		return nil, fmt.Errorf("%w: from must be <= to", ErrInvalidRange)
	}
	return s.repo.Range(ctx, from, to)
}
