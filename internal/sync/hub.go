package sync

import (
	gosync "sync"
)

// Hub tracks every live Registry so that cancellations driven by deletes can
// reach all of them. Each client connection owns its own Registry (at most
// one subscription per scope within a connection); the Hub is the fan-out
// point for tearing scopes down across connections.
type Hub struct {
	mu         gosync.Mutex
	registries map[*Registry]struct{}
}

func NewHub() *Hub {
	return &Hub{registries: make(map[*Registry]struct{})}
}

// Attach registers a Registry with the hub.
func (h *Hub) Attach(r *Registry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registries[r] = struct{}{}
}

// Detach removes a Registry from the hub and cancels everything it holds.
func (h *Hub) Detach(r *Registry) {
	h.mu.Lock()
	delete(h.registries, r)
	h.mu.Unlock()
	r.UnsubscribeAll()
}

// UnsubscribeScope cancels the given scope in every attached registry.
func (h *Hub) UnsubscribeScope(scopeKey string) {
	for _, r := range h.snapshot() {
		r.UnsubscribeScope(scopeKey)
	}
}

// UnsubscribePrefix cancels, in every attached registry, all scopes whose key
// starts with prefix. Called after cascade deletes so no subscription is left
// watching a path that no longer exists.
func (h *Hub) UnsubscribePrefix(prefix string) {
	for _, r := range h.snapshot() {
		r.UnsubscribePrefix(prefix)
	}
}

// UnsubscribeAll cancels every subscription in every attached registry.
func (h *Hub) UnsubscribeAll() {
	for _, r := range h.snapshot() {
		r.UnsubscribeAll()
	}
}

// Len reports the number of attached registries.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.registries)
}

func (h *Hub) snapshot() []*Registry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Registry, 0, len(h.registries))
	for r := range h.registries {
		out = append(out, r)
	}
	return out
}
