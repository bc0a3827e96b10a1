package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"smart_switch/internal/models"
)

type UsageSQLite struct {
	db *sql.DB
}

func NewUsageSQLite(db *sql.DB) *UsageSQLite { return &UsageSQLite{db: db} }

const (
	upsertUsageSQL = `INSERT INTO daily_usage (day, energy_kwh, cost, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET energy_kwh = excluded.energy_kwh, cost = excluded.cost, updated_at = excluded.updated_at`
	selectUsageSQL      = `SELECT day, energy_kwh, cost, updated_at FROM daily_usage WHERE day = ?`
	selectUsageRangeSQL = `SELECT day, energy_kwh, cost, updated_at FROM daily_usage WHERE day >= ? AND day <= ? ORDER BY day ASC`
)

func (r *UsageSQLite) Upsert(ctx context.Context, u models.DailyUsage) error {
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, upsertUsageSQL, u.Day, u.EnergyKWh, u.Cost.String(), u.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("upsert usage %s: %w", u.Day, err)
	}
	return nil
}

// Get returns a zero DailyUsage for day when nothing was recorded.
func (r *UsageSQLite) Get(ctx context.Context, day string) (models.DailyUsage, error) {
	u, err := scanUsage(r.db.QueryRowContext(ctx, selectUsageSQL, day))
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyUsage{Day: day, Cost: decimal.Zero}, nil
	}
	if err != nil {
		return models.DailyUsage{}, fmt.Errorf("select usage %s: %w", day, err)
	}
	return u, nil
}

// Range returns recorded days in [from, to] (YYYY-MM-DD, inclusive).
func (r *UsageSQLite) Range(ctx context.Context, from, to string) ([]models.DailyUsage, error) {
	rows, err := r.db.QueryContext(ctx, selectUsageRangeSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("select usage range: %w", err)
	}
	defer rows.Close()

	out := []models.DailyUsage{}
	for rows.Next() {
		u, err := scanUsage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUsage(row rowScanner) (models.DailyUsage, error) {
	var (
		u    models.DailyUsage
		cost string
	)
	if err := row.Scan(&u.Day, &u.EnergyKWh, &cost, &u.UpdatedAt); err != nil {
		return models.DailyUsage{}, err
	}
	c, err := decimal.NewFromString(cost)
	if err != nil {
		return models.DailyUsage{}, fmt.Errorf("parse cost %q: %w", cost, err)
	}
	u.Cost = c
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}
