package auth

import (
	"context"
	"fmt"
	"sync"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/logx"
)

// Store persists the bearer token across process restarts.
type Store interface {
	SaveToken(ctx context.Context, token string) error
	LoadToken(ctx context.Context) (string, error)
	DeleteToken(ctx context.Context) error
}

// TokenSource holds the current bearer token for this subsystem. The token
// is owned by an external auth component; this source only consumes it and
// hands it out, re-read on every connect so a refresh lands on the next retry.
type TokenSource struct {
	mu       sync.RWMutex
	token    string
	store    Store
	logger   logx.Logger
	onLogout func()
}

// New creates a TokenSource backed by the given persistence store.
// store may be nil; the token then lives only in memory.
func New(store Store, logger logx.Logger) *TokenSource {
	if logger == nil {
		logger = logx.Nop()
	}
	return &TokenSource{store: store, logger: logger}
}

// Restore loads a previously persisted token, if any.
func (t *TokenSource) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	tok, err := t.store.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("restore token: %w", err)
	}
	if tok == "" {
		return nil
	}
	t.mu.Lock()
	t.token = tok
	t.mu.Unlock()
	t.logger.Info("auth token restored")
	return nil
}

// Login installs a fresh token and persists it.
func (t *TokenSource) Login(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Invalid
	}
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
	if t.store != nil {
		if err := t.store.SaveToken(ctx, token); err != nil {
			return fmt.Errorf("persist token: %w", err)
		}
	}
	return nil
}

// Token returns the current bearer token.
func (t *TokenSource) Token() (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.token == "" {
		return "", apperr.Unauthorized
	}
	return t.token, nil
}

// Authenticated reports whether a token is present.
func (t *TokenSource) Authenticated() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token != ""
}

// OnLogout registers a callback fired after Logout clears the token.
func (t *TokenSource) OnLogout(fn func()) {
	t.mu.Lock()
	t.onLogout = fn
	t.mu.Unlock()
}

// Logout clears the token, removes it from the store and fires the callback.
func (t *TokenSource) Logout(ctx context.Context) error {
	t.mu.Lock()
	t.token = ""
	fn := t.onLogout
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.DeleteToken(ctx); err != nil {
			t.logger.Warn("token delete failed", logx.Err(err))
		}
	}
	if fn != nil {
		fn()
	}
	return nil
}
