package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var ErrInvalidValue = errors.New("value is not valid JSON")

// KVSQLite keeps the switch state as JSON documents keyed by slash-separated
// paths, and fans every committed write out to in-process subscribers.
type KVSQLite struct {
	db *sql.DB

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	prefix string
	ch     chan Change
	done   chan struct{}
}

func NewKVSQLite(db *sql.DB) *KVSQLite {
	return &KVSQLite{db: db, subs: make(map[*subscriber]struct{})}
}

var _ KVStore = (*KVSQLite)(nil)

const (
	selectKVSQL      = `SELECT value FROM kv WHERE key = ?`
	selectKVChildSQL = `SELECT key, value FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`
	upsertKVSQL      = `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	deleteKVSQL = `DELETE FROM kv WHERE key = ?`

	subscriberBuffer = 64
)

// Get returns nil when the key holds no record.
func (s *KVSQLite) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var v string
	err := s.db.QueryRowContext(ctx, selectKVSQL, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return json.RawMessage(v), nil
}

// List returns records that are direct children of prefix, keyed by the last
// path segment.
func (s *KVSQLite) List(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	p := strings.TrimSuffix(prefix, "/") + "/"
	rows, err := s.db.QueryContext(ctx, selectKVChildSQL, len(p), p)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		child := strings.TrimPrefix(k, p)
		if child == "" || strings.Contains(child, "/") {
			continue
		}
		out[child] = json.RawMessage(v)
	}
	return out, rows.Err()
}

// Set writes value at key; nil deletes. A key that points inside an existing
// record (timers/<id>/enabled with timers/<id> stored) patches that field.
func (s *KVSQLite) Set(ctx context.Context, key string, value json.RawMessage) error {
	key = strings.Trim(key, "/")
	if key == "" {
		return fmt.Errorf("set: empty key")
	}
	if value != nil && !json.Valid(value) {
		return fmt.Errorf("set %q: %w", key, ErrInvalidValue)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set %q: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	recordKey, current, err := findRecord(ctx, tx, key)
	if err != nil {
		return err
	}

	next := value
	if recordKey != key {
		next, err = patchField(current, strings.Split(strings.TrimPrefix(key, recordKey+"/"), "/"), value)
		if err != nil {
			return fmt.Errorf("patch %q: %w", key, err)
		}
	}

	if next == nil {
		_, err = tx.ExecContext(ctx, deleteKVSQL, recordKey)
	} else {
		_, err = tx.ExecContext(ctx, upsertKVSQL, recordKey, string(next), time.Now().UTC())
	}
	if err != nil {
		return fmt.Errorf("write %q: %w", recordKey, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %q: %w", recordKey, err)
	}

	s.publish(Change{Key: recordKey, Value: next})
	return nil
}

// findRecord resolves key to the record that owns it: the key itself when it
// is stored or has no stored ancestor, otherwise the nearest stored ancestor.
func findRecord(ctx context.Context, tx *sql.Tx, key string) (string, json.RawMessage, error) {
	parts := strings.Split(key, "/")
	for i := len(parts); i > 0; i-- {
		k := strings.Join(parts[:i], "/")
		var v string
		err := tx.QueryRowContext(ctx, selectKVSQL, k).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("lookup %q: %w", k, err)
		}
		return k, json.RawMessage(v), nil
	}
	return key, nil, nil
}

// patchField sets (or with nil removes) the field at path inside the JSON
// object record.
func patchField(record json.RawMessage, path []string, value json.RawMessage) (json.RawMessage, error) {
	var root map[string]any
	if err := json.Unmarshal(record, &root); err != nil || root == nil {
		return nil, fmt.Errorf("record is not an object")
	}
	obj := root
	for _, p := range path[:len(path)-1] {
		child, ok := obj[p].(map[string]any)
		if !ok {
			child = make(map[string]any)
			obj[p] = child
		}
		obj = child
	}
	last := path[len(path)-1]
	if value == nil {
		delete(obj, last)
	} else {
		obj[last] = value
	}
	return json.Marshal(root)
}

// Subscribe delivers changes to prefix and everything below it until ctx is
// done, then closes the channel.
func (s *KVSQLite) Subscribe(ctx context.Context, prefix string) (<-chan Change, error) {
	sub := &subscriber{
		prefix: strings.Trim(prefix, "/"),
		ch:     make(chan Change, subscriberBuffer),
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		close(sub.done)
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		close(sub.ch)
	}()
	return sub.ch, nil
}

func (s *KVSQLite) publish(c Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subs {
		if !matchesPrefix(c.Key, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- c:
		case <-sub.done:
		}
	}
}

func matchesPrefix(key, prefix string) bool {
	return prefix == "" || key == prefix || strings.HasPrefix(key, prefix+"/")
}
