package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"smart_switch/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Change is published after every successful store write. Key is the record
// that changed; Value is its full new JSON, nil when it was deleted.
type Change struct {
	Key   string
	Value json.RawMessage
}

// KVStore is the realtime key/value store shared with the device.
type KVStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	List(ctx context.Context, prefix string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Subscribe(ctx context.Context, prefix string) (<-chan Change, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.SwitchEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.SwitchEvent, error)
}

type PushRepo interface {
	Save(ctx context.Context, s models.PushSubscription) error
	List(ctx context.Context) ([]models.PushSubscription, error)
	Delete(ctx context.Context, endpoint string) error
}

type UsageRepo interface {
	Upsert(ctx context.Context, u models.DailyUsage) error
	Get(ctx context.Context, day string) (models.DailyUsage, error)
	Range(ctx context.Context, from, to string) ([]models.DailyUsage, error)
}

type Repository struct {
	Store     KVStore
	EventRepo EventRepo
	Auth      Authorization
	Push      PushRepo
	Usage     UsageRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Store:     NewKVSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserRepository(db),
		Push:      NewPushSQLite(db),
		Usage:     NewUsageSQLite(db),
	}
}
