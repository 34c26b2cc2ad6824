// Package forum implements the themata / threads / comments side of the
// site: creation, moderation, comment-count upkeep, cascading deletes, and
// the live watch views the frontend renders from.
package forum

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/store"
	"agora/internal/validation"
)

// ScopeCanceller cancels live subscriptions under a path prefix. Satisfied
// by sync.Registry; nil-checkable so batch tools can run without one.
type ScopeCanceller interface {
	UnsubscribePrefix(prefix string)
}

// Service implements forum operations against the document store. All
// mutations take the caller's identity explicitly.
type Service struct {
	store  store.Store
	scopes ScopeCanceller
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(st store.Store, scopes ScopeCanceller, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		scopes: scopes,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// CreateThema creates a top-level forum category.
func (s *Service) CreateThema(ctx context.Context, viewer models.Identity, name, description string) (*models.Thema, error) {
	if viewer.UID == "" {
		return nil, models.NewNotAuthenticatedError("Sign in to create a thema")
	}
	if name == "" {
		return nil, models.NewValidationError("Thema name is required")
	}
	if err := validation.ValidateThemaName(name); err != nil {
		return nil, models.NewValidationError("Invalid thema name: " + err.Error())
	}
	thema := &models.Thema{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		CreatedBy:   viewer.UID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Write(ctx, models.ThemaPath(thema.ID), thema.ToFields(), false); err != nil {
		return nil, err
	}
	cache.InvalidateThemata(ctx)
	s.logger.Info("thema created", "thema_id", thema.ID, "created_by", viewer.UID)
	return thema, nil
}

// ListThemata returns all themata ordered by creation time. The list is
// cached briefly; mutations invalidate it.
func (s *Service) ListThemata(ctx context.Context) ([]*models.Thema, error) {
	var cached []*models.Thema
	if cache.GetJSON(ctx, cache.ThemataKey, &cached) {
		return cached, nil
	}
	docs, err := s.store.ListOnce(ctx, store.Query{
		Collection: models.ThemataCollection(),
		OrderBy:    &store.OrderBy{Field: "createdAt"},
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Thema, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.ThemaFromFields(d.ID, d.Fields))
	}
	cache.SetJSON(ctx, cache.ThemataKey, out, cache.ThemataTTL)
	return out, nil
}

// CreateThread creates a discussion inside a thema. The thema must exist.
func (s *Service) CreateThread(ctx context.Context, viewer models.Identity, themaID, title, initialComment string) (*models.Thread, error) {
	if viewer.UID == "" {
		return nil, models.NewNotAuthenticatedError("Sign in to create a thread")
	}
	if title == "" {
		return nil, models.NewValidationError("Thread title is required")
	}
	if _, err := s.store.GetOnce(ctx, models.ThemaPath(themaID)); err != nil {
		if store.IsNotFound(err) {
			return nil, models.NewNotFoundError("thema", themaID)
		}
		return nil, err
	}
	thread := &models.Thread{
		ID:                 s.newID(),
		ThemaID:            themaID,
		Title:              title,
		InitialComment:     initialComment,
		CreatedBy:          viewer.UID,
		CreatorDisplayName: viewer.DisplayName,
		CreatedAt:          s.now().UTC(),
		Reactions:          models.Reactions{},
	}
	if err := s.store.Write(ctx, models.ThreadPath(themaID, thread.ID), thread.ToFields(), false); err != nil {
		return nil, err
	}
	s.logger.Info("thread created", "thema_id", themaID, "thread_id", thread.ID, "created_by", viewer.UID)
	return thread, nil
}

// AddComment appends a comment to a thread. parentID may name another
// comment in the same thread, or be empty for a top-level comment; a parent
// deleted between read and write is tolerated, the tree renders the reply as
// a root. The thread's commentCount is rewritten afterwards.
func (s *Service) AddComment(ctx context.Context, viewer models.Identity, themaID, threadID, parentID, content string) (*models.Comment, error) {
	if viewer.UID == "" {
		return nil, models.NewNotAuthenticatedError("Sign in to comment")
	}
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if _, err := s.store.GetOnce(ctx, models.ThreadPath(themaID, threadID)); err != nil {
		if store.IsNotFound(err) {
			return nil, models.NewNotFoundError("thread", threadID)
		}
		return nil, err
	}
	comment := &models.Comment{
		ID:                 s.newID(),
		Content:            content,
		CreatedBy:          viewer.UID,
		CreatorDisplayName: viewer.DisplayName,
		CreatorHandle:      viewer.Handle,
		CreatorPhotoURL:    viewer.PhotoURL,
		CreatedAt:          s.now().UTC(),
		ParentID:           parentID,
		Reactions:          models.Reactions{},
	}
	if err := s.store.Write(ctx, models.CommentPath(themaID, threadID, comment.ID), comment.ToFields(), false); err != nil {
		return nil, err
	}
	s.refreshCommentCount(ctx, themaID, threadID)
	return comment, nil
}

// UpdateComment rewrites a comment's content. Only the creator or an admin
// may edit.
func (s *Service) UpdateComment(ctx context.Context, viewer models.Identity, themaID, threadID, commentID, content string) error {
	if viewer.UID == "" {
		return models.NewNotAuthenticatedError("Sign in to edit")
	}
	if content == "" {
		return models.NewValidationError("Comment content is required")
	}
	path := models.CommentPath(themaID, threadID, commentID)
	doc, err := s.store.GetOnce(ctx, path)
	if err != nil {
		if store.IsNotFound(err) {
			return models.NewNotFoundError("comment", commentID)
		}
		return err
	}
	comment := models.CommentFromFields(doc.ID, doc.Fields)
	if !viewer.CanModerate(comment.CreatedBy) {
		return models.NewForbiddenError("Only the author or an admin can edit this comment")
	}
	return s.store.Write(ctx, path, map[string]any{"content": content}, true)
}

// DeleteComment removes a single comment and refreshes the thread's
// commentCount. Deleting a comment that is already gone is a no-op.
func (s *Service) DeleteComment(ctx context.Context, viewer models.Identity, themaID, threadID, commentID string) error {
	if viewer.UID == "" {
		return models.NewNotAuthenticatedError("Sign in to delete")
	}
	path := models.CommentPath(themaID, threadID, commentID)
	doc, err := s.store.GetOnce(ctx, path)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	comment := models.CommentFromFields(doc.ID, doc.Fields)
	if !viewer.CanModerate(comment.CreatedBy) {
		return models.NewForbiddenError("Only the author or an admin can delete this comment")
	}
	if err := s.store.Delete(ctx, path); err != nil {
		return err
	}
	s.refreshCommentCount(ctx, themaID, threadID)
	return nil
}

// refreshCommentCount rewrites the denormalized commentCount on the thread
// from the authoritative comment list. Best-effort: a failed refresh is
// logged, not surfaced, since the count is display-only and the next
// add/delete repairs it.
func (s *Service) refreshCommentCount(ctx context.Context, themaID, threadID string) {
	docs, err := s.store.ListOnce(ctx, store.Query{Collection: models.CommentsCollection(themaID, threadID)})
	if err != nil {
		s.logger.Warn("comment count refresh failed", "thread_id", threadID, "error", err)
		return
	}
	patch := map[string]any{"commentCount": len(docs)}
	if err := s.store.Write(ctx, models.ThreadPath(themaID, threadID), patch, true); err != nil {
		s.logger.Warn("comment count write failed", "thread_id", threadID, "error", err)
	}
}
