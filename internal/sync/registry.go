// Package sync owns the live query subscriptions held against the document
// store. Every watched view is identified by a scope key (the collection
// path it renders); the registry guarantees at most one live store
// subscription per scope key at any moment.
package sync

import (
	"context"
	"log/slog"
	"strings"
	gosync "sync"

	"agora/internal/observability"
	"agora/internal/store"
)

// Registry tracks live subscriptions by scope key. Safe for concurrent use.
type Registry struct {
	store  store.Store
	logger *slog.Logger

	mu     gosync.Mutex
	scopes map[string]store.CancelFunc
}

func NewRegistry(st store.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  st,
		logger: logger,
		scopes: make(map[string]store.CancelFunc),
	}
}

// SubscribeScope opens a live subscription for scopeKey, replacing any
// existing subscription under the same key; the old one is cancelled before
// the new one is opened, so at most one is ever live per scope. If the store
// rejects the subscription no handle is retained and the scope ends up
// unsubscribed. onSnapshot runs on the store's delivery goroutine and must
// not call back into the registry.
func (r *Registry) SubscribeScope(ctx context.Context, scopeKey string, q store.Query, onSnapshot func(store.Snapshot)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.scopes[scopeKey]; ok {
		old()
		delete(r.scopes, scopeKey)
		observability.ActiveSubscriptions.Dec()
		r.logger.Debug("replacing live subscription", "scope", scopeKey)
	}

	cancel, err := r.store.Subscribe(ctx, q, onSnapshot)
	if err != nil {
		r.logger.Error("subscribe failed", "scope", scopeKey, "error", err)
		return err
	}
	r.scopes[scopeKey] = cancel
	observability.ActiveSubscriptions.Inc()
	return nil
}

// UnsubscribeScope cancels the subscription for scopeKey. Unsubscribing a
// scope that is not subscribed is a no-op.
func (r *Registry) UnsubscribeScope(scopeKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(scopeKey)
}

// UnsubscribePrefix cancels every subscription whose scope key starts with
// prefix. Used when a container is deleted: all views under its path go dead
// together.
func (r *Registry) UnsubscribePrefix(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.scopes {
		if strings.HasPrefix(key, prefix) {
			r.unsubscribeLocked(key)
		}
	}
}

// UnsubscribeAll cancels everything. Called on teardown of the owning view
// (socket close, shutdown).
func (r *Registry) UnsubscribeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.scopes {
		r.unsubscribeLocked(key)
	}
}

func (r *Registry) unsubscribeLocked(scopeKey string) {
	cancel, ok := r.scopes[scopeKey]
	if !ok {
		return
	}
	cancel()
	delete(r.scopes, scopeKey)
	observability.ActiveSubscriptions.Dec()
}

// ActiveScopes returns the currently subscribed scope keys, unordered.
func (r *Registry) ActiveScopes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.scopes))
	for key := range r.scopes {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}
