// Package session holds the active user identity. It is a placeholder
// identity holder: logging in records a user key without authenticating it.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"invoicedesk/pkg/domain"
)

// ErrEmptyUser is returned by Login for a blank identifier.
var ErrEmptyUser = errors.New("user identifier required")

// Listener is notified after every login, logout or restore.
type Listener func(ctx context.Context, user string, active bool)

// Gate tracks the active user and persists it under domain.SessionUserKey so
// the last user is restored on the next start.
type Gate struct {
	kv domain.KeyValueStore

	mu        sync.RWMutex
	user      string
	listeners map[int]Listener
	nextID    int
}

// NewGate returns an inactive gate backed by kv.
func NewGate(kv domain.KeyValueStore) *Gate {
	return &Gate{kv: kv, listeners: make(map[int]Listener)}
}

// Current returns the active user and whether one is active.
func (g *Gate) Current() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user, g.user != ""
}

// Subscribe registers fn and returns a function that removes it.
func (g *Gate) Subscribe(fn func(ctx context.Context, user string, active bool)) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// Login makes user active, persists it and notifies subscribers.
func (g *Gate) Login(ctx context.Context, user string) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return ErrEmptyUser
	}
	if err := g.kv.Set(ctx, domain.SessionUserKey, []byte(user)); err != nil {
		return &domain.StorageError{Op: "set", Key: domain.SessionUserKey, Err: err}
	}
	g.set(ctx, user)
	return nil
}

// Logout clears the active user and the persisted key.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.kv.Remove(ctx, domain.SessionUserKey); err != nil {
		return &domain.StorageError{Op: "remove", Key: domain.SessionUserKey, Err: err}
	}
	g.set(ctx, "")
	return nil
}

// Restore reactivates the persisted user, if any, and reports whether a
// user is now active.
func (g *Gate) Restore(ctx context.Context) (bool, error) {
	raw, ok, err := g.kv.Get(ctx, domain.SessionUserKey)
	if err != nil {
		return false, &domain.StorageError{Op: "get", Key: domain.SessionUserKey, Err: err}
	}
	user := strings.TrimSpace(string(raw))
	if !ok || user == "" {
		return false, nil
	}
	g.set(ctx, user)
	return true, nil
}

// set swaps the user and notifies listeners outside the lock so they can
// call back into the gate.
func (g *Gate) set(ctx context.Context, user string) {
	g.mu.Lock()
	g.user = user
	fns := make([]Listener, 0, len(g.listeners))
	for id := 0; id < g.nextID; id++ {
		if fn, ok := g.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	g.mu.Unlock()
	for _, fn := range fns {
		fn(ctx, user, user != "")
	}
}
