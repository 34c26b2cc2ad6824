package messaging

import (
	"context"
	"log/slog"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/store"
)

// Subscriptions is the registry surface the watcher needs. Satisfied by
// sync.Registry.
type Subscriptions interface {
	SubscribeScope(ctx context.Context, scopeKey string, q store.Query, onSnapshot func(store.Snapshot)) error
	UnsubscribeScope(scopeKey string)
	UnsubscribePrefix(prefix string)
}

func renderSummaries(docs []store.Document) []*models.ConversationSummary {
	out := make([]*models.ConversationSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.ConversationSummaryFromFields(d.ID, d.Fields))
	}
	return out
}

func renderMessages(conversationID string, docs []store.Document) []*models.Message {
	out := make([]*models.Message, 0, len(docs))
	for _, d := range docs {
		msg := models.MessageFromFields(d.ID, d.Fields)
		msg.ConversationID = conversationID
		out = append(out, msg)
	}
	return out
}

// ListConversations returns the viewer's mailbox, most recent activity
// first. Mailboxes are per-viewer so the cached copy never leaks across
// users; fan-out writes invalidate it.
func (s *Service) ListConversations(ctx context.Context, viewer models.Identity) ([]*models.ConversationSummary, error) {
	key := cache.MailboxKey(viewer.UID)
	var cached []*models.ConversationSummary
	if cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}
	docs, err := s.store.ListOnce(ctx, store.Query{
		Collection: models.MailboxCollection(viewer.UID),
		OrderBy:    &store.OrderBy{Field: "lastMessageAt", Desc: true},
	})
	if err != nil {
		return nil, err
	}
	out := renderSummaries(docs)
	cache.SetJSON(ctx, key, out, cache.MailboxTTL)
	return out, nil
}

// ListMessages returns the viewer's copy of a conversation's messages in
// send order.
func (s *Service) ListMessages(ctx context.Context, viewer models.Identity, conversationID string) ([]*models.Message, error) {
	docs, err := s.store.ListOnce(ctx, store.Query{
		Collection: models.MessagesCollection(viewer.UID, conversationID),
		OrderBy:    &store.OrderBy{Field: "createdAt"},
	})
	if err != nil {
		return nil, err
	}
	return renderMessages(conversationID, docs), nil
}

// Watcher delivers a viewer's mailbox as render-ready view lists, fully
// recomputed from each snapshot.
type Watcher struct {
	registry Subscriptions
	logger   *slog.Logger
}

func NewWatcher(registry Subscriptions, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{registry: registry, logger: logger}
}

// WatchMailbox subscribes to the viewer's conversation list ordered by most
// recent activity. Returns the scope key to pass to Unwatch.
func (w *Watcher) WatchMailbox(ctx context.Context, viewer models.Identity, fn func([]*models.ConversationSummary)) (string, error) {
	scopeKey := models.MailboxCollection(viewer.UID)
	q := store.Query{
		Collection: scopeKey,
		OrderBy:    &store.OrderBy{Field: "lastMessageAt", Desc: true},
	}
	err := w.registry.SubscribeScope(ctx, scopeKey, q, func(snap store.Snapshot) {
		observability.SnapshotsDelivered.WithLabelValues("mailbox").Inc()
		fn(renderSummaries(snap.Docs))
	})
	if err != nil {
		return "", err
	}
	return scopeKey, nil
}

// WatchMessages subscribes to the viewer's copy of a conversation's messages
// in send order.
func (w *Watcher) WatchMessages(ctx context.Context, viewer models.Identity, conversationID string, fn func([]*models.Message)) (string, error) {
	scopeKey := models.MessagesCollection(viewer.UID, conversationID)
	q := store.Query{
		Collection: scopeKey,
		OrderBy:    &store.OrderBy{Field: "createdAt"},
	}
	err := w.registry.SubscribeScope(ctx, scopeKey, q, func(snap store.Snapshot) {
		observability.SnapshotsDelivered.WithLabelValues("messages").Inc()
		fn(renderMessages(conversationID, snap.Docs))
	})
	if err != nil {
		return "", err
	}
	return scopeKey, nil
}

// Unwatch cancels the subscription previously opened for scopeKey.
func (w *Watcher) Unwatch(scopeKey string) {
	w.registry.UnsubscribeScope(scopeKey)
}
