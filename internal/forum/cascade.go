package forum

import (
	"context"
	"errors"
	"log/slog"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

// Cascade deletes containers bottom-up. The store has no recursive delete:
// deleting a thread document leaves its comments orphaned but still stored
// and still billed, so every leaf is deleted first and the container last.
// A partial failure leaves the container in place; re-running the same
// delete resumes where it stopped, since deleting an absent document is a
// no-op.
type Cascade struct {
	store  store.Store
	scopes ScopeCanceller
	logger *slog.Logger
}

func NewCascade(st store.Store, scopes ScopeCanceller, logger *slog.Logger) *Cascade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{store: st, scopes: scopes, logger: logger}
}

// DeleteThread deletes every comment of the thread, then the thread itself,
// then cancels live subscriptions scoped under the thread's path. If any
// comment delete fails the thread document is left in place and the joined
// errors are returned.
func (c *Cascade) DeleteThread(ctx context.Context, themaID, threadID string) error {
	comments, err := c.store.ListOnce(ctx, store.Query{Collection: models.CommentsCollection(themaID, threadID)})
	if err != nil {
		return err
	}
	var failed []error
	for _, doc := range comments {
		if err := c.store.Delete(ctx, doc.Path); err != nil {
			c.logger.Warn("comment delete failed", "path", doc.Path, "error", err)
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	if err := c.store.Delete(ctx, models.ThreadPath(themaID, threadID)); err != nil {
		return err
	}
	if c.scopes != nil {
		c.scopes.UnsubscribePrefix(models.ThreadPath(themaID, threadID) + "/")
	}
	c.logger.Info("thread deleted", "thema_id", themaID, "thread_id", threadID, "comments", len(comments))
	return nil
}

// DeleteThema cascades through every thread of the thema, then deletes the
// thema document. Any thread that fails is skipped and reported; the thema
// is only deleted once every thread is gone.
func (c *Cascade) DeleteThema(ctx context.Context, themaID string) error {
	span, ctx := observability.NewSpan(ctx, "forum.cascade_delete_thema")
	defer span.End()
	span.AddAttributes(attribute.String("thema_id", themaID))

	threads, err := c.store.ListOnce(ctx, store.Query{Collection: models.ThreadsCollection(themaID)})
	if err != nil {
		span.SetError(err)
		return err
	}
	var failed []error
	for _, doc := range threads {
		if err := c.DeleteThread(ctx, themaID, doc.ID); err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	if err := c.store.Delete(ctx, models.ThemaPath(themaID)); err != nil {
		return err
	}
	if c.scopes != nil {
		c.scopes.UnsubscribePrefix(models.ThemaPath(themaID) + "/")
	}
	c.logger.Info("thema deleted", "thema_id", themaID, "threads", len(threads))
	return nil
}

// DeleteThread removes a thread and all its comments. Only the thread's
// creator or an admin may delete; a thread that is already gone is a no-op.
func (s *Service) DeleteThread(ctx context.Context, viewer models.Identity, themaID, threadID string) error {
	if viewer.UID == "" {
		return models.NewNotAuthenticatedError("Sign in to delete")
	}
	doc, err := s.store.GetOnce(ctx, models.ThreadPath(themaID, threadID))
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	thread := models.ThreadFromFields(doc.ID, doc.Fields)
	if !viewer.CanModerate(thread.CreatedBy) {
		return models.NewForbiddenError("Only the author or an admin can delete this thread")
	}
	return NewCascade(s.store, s.scopes, s.logger).DeleteThread(ctx, themaID, threadID)
}

// DeleteThema removes a thema with everything under it. Admin only.
func (s *Service) DeleteThema(ctx context.Context, viewer models.Identity, themaID string) error {
	if viewer.UID == "" {
		return models.NewNotAuthenticatedError("Sign in to delete")
	}
	if !viewer.IsAdmin {
		return models.NewForbiddenError("Only an admin can delete a thema")
	}
	if _, err := s.store.GetOnce(ctx, models.ThemaPath(themaID)); err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	if err := NewCascade(s.store, s.scopes, s.logger).DeleteThema(ctx, themaID); err != nil {
		return err
	}
	cache.InvalidateThemata(ctx)
	return nil
}
