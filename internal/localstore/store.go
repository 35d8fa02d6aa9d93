package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"courier-driver-agent/internal/domain"
)

const (
	keyToken    = "auth_token"
	keyPresence = "presence"
)

// Repo is the device-local snapshot store. It lets a restarted process show
// the last known state immediately; the server list from the next reconcile
// is always authoritative and overwrites it.
type Repo struct{ db *sql.DB }

// NewRepo creates a new Repo over an opened sqlite handle.
func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

// SaveToken stores the bearer token.
func (r *Repo) SaveToken(ctx context.Context, token string) error {
	return r.setKV(ctx, keyToken, token)
}

// LoadToken returns the stored bearer token, or "" when absent.
func (r *Repo) LoadToken(ctx context.Context) (string, error) {
	return r.getKV(ctx, keyToken)
}

// DeleteToken removes the stored bearer token.
func (r *Repo) DeleteToken(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, keyToken)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// SavePresence stores the last desired presence.
func (r *Repo) SavePresence(ctx context.Context, p domain.Presence) error {
	return r.setKV(ctx, keyPresence, string(p))
}

// LoadPresence returns the last stored presence, defaulting to offline.
func (r *Repo) LoadPresence(ctx context.Context) (domain.Presence, error) {
	v, err := r.getKV(ctx, keyPresence)
	if err != nil {
		return domain.PresenceOffline, err
	}
	if p, ok := domain.ParsePresence(v); ok {
		return p, nil
	}
	return domain.PresenceOffline, nil
}

// ReplaceOrders overwrites the cached active-order snapshot wholesale.
func (r *Repo) ReplaceOrders(ctx context.Context, orders []domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("clear orders: %w", err)
	}
	for _, o := range orders {
		payload, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("encode order %d: %w", o.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders(id, payload) VALUES(?, ?)`, o.ID, string(payload)); err != nil {
			return fmt.Errorf("insert order %d: %w", o.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadOrders returns the cached active-order snapshot ordered by id.
func (r *Repo) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Order
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var o domain.Order
		if err := json.Unmarshal([]byte(payload), &o); err != nil {
			// A corrupt row is dropped; the next reconcile rewrites the snapshot.
			continue
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) setKV(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *Repo) getKV(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}
