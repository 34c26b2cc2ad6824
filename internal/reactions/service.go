package reactions

import (
	"context"
	"log/slog"

	"agora/internal/models"
	"agora/internal/store"
)

// Service applies reaction toggles to stored documents. Each toggle is a
// single-key merge write under the reactions field, so two people reacting
// to the same item at the same moment land as independent writes instead of
// competing whole-map replacements.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// Toggle flips viewer's reaction of the given kind on the document at path.
// Toggling an item that no longer exists is a silent no-op: the race between
// a tap and a delete is expected, not an error.
func (s *Service) Toggle(ctx context.Context, path string, viewer models.Identity, kind string) (Action, error) {
	if viewer.UID == "" {
		return ActionRemoved, models.NewNotAuthenticatedError("Sign in to react")
	}
	if kind == "" {
		return ActionRemoved, models.NewValidationError("Reaction kind is required")
	}

	doc, err := s.store.GetOnce(ctx, path)
	if err != nil {
		if store.IsNotFound(err) {
			s.logger.Debug("reaction toggle on missing document", "path", path)
			return ActionRemoved, nil
		}
		return ActionRemoved, err
	}

	current := models.ReactionsFromFields(doc.Fields, "reactions")
	_, action := Toggle(current, viewer.UID, kind)

	var value any
	if action == ActionSet {
		value = kind
	}
	patch := map[string]any{"reactions": map[string]any{viewer.UID: value}}
	if err := s.store.Write(ctx, path, patch, true); err != nil {
		return action, err
	}
	return action, nil
}

// Summary reads the document at path and aggregates its reactions for the
// viewer. A missing document yields an all-zero summary.
func (s *Service) Summary(ctx context.Context, path string, viewer models.Identity) (Summary, error) {
	doc, err := s.store.GetOnce(ctx, path)
	if err != nil {
		if store.IsNotFound(err) {
			return Summarize(models.Reactions{}, viewer.UID), nil
		}
		return Summary{}, err
	}
	return Summarize(models.ReactionsFromFields(doc.Fields, "reactions"), viewer.UID), nil
}
