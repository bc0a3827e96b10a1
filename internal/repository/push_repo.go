package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smart_switch/internal/models"
)

type PushSQLite struct {
	db *sql.DB
}

func NewPushSQLite(db *sql.DB) *PushSQLite { return &PushSQLite{db: db} }

const (
	upsertPushSQL = `INSERT INTO push_subscriptions (endpoint, p256dh, auth, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET p256dh = excluded.p256dh, auth = excluded.auth`
	selectPushSQL = `SELECT endpoint, p256dh, auth, created_at FROM push_subscriptions ORDER BY created_at ASC`
	deletePushSQL = `DELETE FROM push_subscriptions WHERE endpoint = ?`
)

func (r *PushSQLite) Save(ctx context.Context, s models.PushSubscription) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, upsertPushSQL, s.Endpoint, s.P256DH, s.Auth, s.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

func (r *PushSQLite) List(ctx context.Context) ([]models.PushSubscription, error) {
	rows, err := r.db.QueryContext(ctx, selectPushSQL)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var out []models.PushSubscription
	for rows.Next() {
		var s models.PushSubscription
		if err := rows.Scan(&s.Endpoint, &s.P256DH, &s.Auth, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PushSQLite) Delete(ctx context.Context, endpoint string) error {
	if _, err := r.db.ExecContext(ctx, deletePushSQL, endpoint); err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}
