package forum

import (
	"context"
	"log/slog"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/reactions"
	"agora/internal/store"
	"agora/internal/tree"
)

// Subscriptions is the registry surface the watcher needs. Satisfied by
// sync.Registry.
type Subscriptions interface {
	SubscribeScope(ctx context.Context, scopeKey string, q store.Query, onSnapshot func(store.Snapshot)) error
	UnsubscribeScope(scopeKey string)
	UnsubscribePrefix(prefix string)
}

// ThreadView is one thread as the list screen renders it.
type ThreadView struct {
	Thread    *models.Thread    `json:"thread"`
	Reactions reactions.Summary `json:"reactions"`
}

// CommentView is one row of the flattened comment rendering: the comment,
// its nesting depth, and its aggregated reactions for the viewer.
type CommentView struct {
	Comment   *models.Comment   `json:"comment"`
	Depth     int               `json:"depth"`
	Reactions reactions.Summary `json:"reactions"`
}

// renderThreadViews recomputes the thread list view from a full result set.
func renderThreadViews(themaID string, docs []store.Document, viewerUID string) []ThreadView {
	views := make([]ThreadView, 0, len(docs))
	for _, d := range docs {
		thread := models.ThreadFromFields(d.ID, d.Fields)
		thread.ThemaID = themaID
		views = append(views, ThreadView{
			Thread:    thread,
			Reactions: reactions.Summarize(thread.Reactions, viewerUID),
		})
	}
	return views
}

// renderCommentViews rebuilds the comment forest from a full result set and
// flattens it with depths. Replies whose parent is missing are kept as roots.
func renderCommentViews(docs []store.Document, viewerUID string) []CommentView {
	comments := make([]*models.Comment, 0, len(docs))
	for _, d := range docs {
		comments = append(comments, models.CommentFromFields(d.ID, d.Fields))
	}
	flat := tree.Flatten(tree.BuildForest(comments))
	views := make([]CommentView, 0, len(flat))
	for _, node := range flat {
		views = append(views, CommentView{
			Comment:   node.Item,
			Depth:     node.Depth,
			Reactions: reactions.Summarize(node.Item.Reactions, viewerUID),
		})
	}
	return views
}

// ListThreads returns the current thread list view for a thema, newest first.
func (s *Service) ListThreads(ctx context.Context, viewer models.Identity, themaID string) ([]ThreadView, error) {
	docs, err := s.store.ListOnce(ctx, store.Query{
		Collection: models.ThreadsCollection(themaID),
		OrderBy:    &store.OrderBy{Field: "createdAt", Desc: true},
	})
	if err != nil {
		return nil, err
	}
	return renderThreadViews(themaID, docs, viewer.UID), nil
}

// ListComments returns the current flattened comment rendering for a thread.
func (s *Service) ListComments(ctx context.Context, viewer models.Identity, themaID, threadID string) ([]CommentView, error) {
	docs, err := s.store.ListOnce(ctx, store.Query{
		Collection: models.CommentsCollection(themaID, threadID),
		OrderBy:    &store.OrderBy{Field: "createdAt"},
	})
	if err != nil {
		return nil, err
	}
	return renderCommentViews(docs, viewer.UID), nil
}

// Watcher turns store snapshots into render-ready view lists. Every snapshot
// is recomputed from scratch: the incoming result set fully replaces the
// previous view, nothing is patched incrementally.
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

// WatchThreads subscribes to a thema's thread list ordered newest-first and
// invokes fn with the full view on every change. Returns the scope key to
// pass to Unwatch.
func (w *Watcher) WatchThreads(ctx context.Context, viewer models.Identity, themaID string, fn func([]ThreadView)) (string, error) {
	scopeKey := models.ThreadsCollection(themaID)
	q := store.Query{
		Collection: scopeKey,
		OrderBy:    &store.OrderBy{Field: "createdAt", Desc: true},
	}
	err := w.registry.SubscribeScope(ctx, scopeKey, q, func(snap store.Snapshot) {
		observability.SnapshotsDelivered.WithLabelValues("threads").Inc()
		fn(renderThreadViews(themaID, snap.Docs, viewer.UID))
	})
	if err != nil {
		return "", err
	}
	return scopeKey, nil
}

// WatchComments subscribes to a thread's comments and invokes fn with the
// flattened, depth-annotated rendering on every change. Comments arrive
// ordered by creation time ascending; the forest is rebuilt per snapshot,
// with replies whose parent is missing kept as roots.
func (w *Watcher) WatchComments(ctx context.Context, viewer models.Identity, themaID, threadID string, fn func([]CommentView)) (string, error) {
	scopeKey := models.CommentsCollection(themaID, threadID)
	q := store.Query{
		Collection: scopeKey,
		OrderBy:    &store.OrderBy{Field: "createdAt"},
	}
	err := w.registry.SubscribeScope(ctx, scopeKey, q, func(snap store.Snapshot) {
		observability.SnapshotsDelivered.WithLabelValues("comments").Inc()
		fn(renderCommentViews(snap.Docs, viewer.UID))
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
