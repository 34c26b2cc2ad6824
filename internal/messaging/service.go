// Package messaging implements direct conversations. The store has no
// shared conversation document: every participant owns a mirrored copy of
// the conversation summary and of each message inside their own mailbox, and
// every mutation must fan out to all copies or the participants' views
// diverge.
package messaging

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/store"
	"agora/internal/validation"
)

// ScopeCanceller cancels live subscriptions under a path prefix. Satisfied
// by sync.Registry.
type ScopeCanceller interface {
	UnsubscribePrefix(prefix string)
}

// Service implements conversation operations. All mutations take the acting
// identity explicitly.
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

// PrivateConversationID derives the ID of the private conversation between
// two people: the UIDs sorted and joined. Both sides derive the same ID
// independently, so "message this person" never creates a second
// conversation.
func PrivateConversationID(uidA, uidB string) string {
	uids := []string{uidA, uidB}
	sort.Strings(uids)
	return strings.Join(uids, "_")
}

// CreateConversation creates a conversation and mirrors its summary into
// every participant's mailbox. A private conversation is between exactly two
// people and gets the deterministic ID; creating it again is an overwrite of
// the same documents, not a duplicate. Group conversations get a fresh ID.
func (s *Service) CreateConversation(ctx context.Context, creator models.Identity, participants []string, name, image, convType string) (*models.ConversationSummary, error) {
	if creator.UID == "" {
		return nil, models.NewNotAuthenticatedError("Sign in to start a conversation")
	}
	members := withParticipant(participants, creator.UID)
	sort.Strings(members)

	var id string
	switch convType {
	case models.ConversationPrivate:
		if len(members) != 2 {
			return nil, models.NewValidationError("A private conversation has exactly two participants")
		}
		id = PrivateConversationID(members[0], members[1])
	case models.ConversationGroup:
		if len(members) < 2 {
			return nil, models.NewValidationError("A group conversation needs at least two participants")
		}
		if name == "" {
			return nil, models.NewValidationError("Group conversation name is required")
		}
		if err := validation.ValidateConversationName(name); err != nil {
			return nil, models.NewValidationError("Invalid conversation name: " + err.Error())
		}
		id = s.newID()
	default:
		return nil, models.NewValidationError("Unknown conversation type")
	}

	summary := &models.ConversationSummary{
		ID:            id,
		Participants:  members,
		Name:          name,
		Image:         image,
		Type:          convType,
		LastMessageAt: s.now().UTC(),
	}
	fields := summary.ToFields()
	var failed []string
	var errs []error
	for _, uid := range members {
		if err := s.store.Write(ctx, models.ConversationSummaryPath(uid, id), fields, false); err != nil {
			failed = append(failed, uid)
			errs = append(errs, err)
		}
	}
	for _, uid := range members {
		cache.InvalidateMailbox(ctx, uid)
	}
	if len(failed) > 0 {
		return summary, newFanoutError("create", id, failed, errs)
	}
	s.logger.Info("conversation created", "conversation_id", id, "type", convType, "participants", len(members))
	return summary, nil
}

// RenameConversation applies a new name to every participant's summary copy.
// Only a participant may rename.
func (s *Service) RenameConversation(ctx context.Context, actor models.Identity, conversationID, name string) error {
	if name == "" {
		return models.NewValidationError("Conversation name is required")
	}
	if err := validation.ValidateConversationName(name); err != nil {
		return models.NewValidationError("Invalid conversation name: " + err.Error())
	}
	summary, err := s.participantSummary(ctx, actor, conversationID)
	if err != nil {
		return err
	}
	patch := map[string]any{"name": name}
	var failed []string
	var errs []error
	for _, uid := range summary.Participants {
		if err := s.store.Write(ctx, models.ConversationSummaryPath(uid, conversationID), patch, true); err != nil {
			failed = append(failed, uid)
			errs = append(errs, err)
		}
	}
	for _, uid := range summary.Participants {
		cache.InvalidateMailbox(ctx, uid)
	}
	if len(failed) > 0 {
		return newFanoutError("rename", conversationID, failed, errs)
	}
	return nil
}

// DeleteConversation removes the conversation from every participant's
// mailbox: each mailbox's message copies first, then its summary, so no
// mailbox is left holding orphaned messages. Partial failure leaves the
// conversation intact for the failed participants and re-running resumes.
func (s *Service) DeleteConversation(ctx context.Context, actor models.Identity, conversationID string) error {
	summary, err := s.participantSummary(ctx, actor, conversationID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil
		}
		return err
	}
	var failed []string
	var errs []error
	for _, uid := range summary.Participants {
		if err := s.deleteMailboxCopy(ctx, uid, conversationID); err != nil {
			failed = append(failed, uid)
			errs = append(errs, err)
			continue
		}
		if s.scopes != nil {
			s.scopes.UnsubscribePrefix(models.ConversationSummaryPath(uid, conversationID) + "/")
		}
	}
	for _, uid := range summary.Participants {
		cache.InvalidateMailbox(ctx, uid)
	}
	if len(failed) > 0 {
		return newFanoutError("delete", conversationID, failed, errs)
	}
	s.logger.Info("conversation deleted", "conversation_id", conversationID, "participants", len(summary.Participants))
	return nil
}

func (s *Service) deleteMailboxCopy(ctx context.Context, uid, conversationID string) error {
	msgs, err := s.store.ListOnce(ctx, store.Query{Collection: models.MessagesCollection(uid, conversationID)})
	if err != nil {
		return err
	}
	for _, doc := range msgs {
		if err := s.store.Delete(ctx, doc.Path); err != nil {
			return err
		}
	}
	return s.store.Delete(ctx, models.ConversationSummaryPath(uid, conversationID))
}

// MarkRead flags every unread message in the viewer's copy of the
// conversation as read. Other participants' copies are untouched; read state
// is per-mailbox.
func (s *Service) MarkRead(ctx context.Context, viewer models.Identity, conversationID string) error {
	if viewer.UID == "" {
		return models.NewNotAuthenticatedError("Sign in first")
	}
	msgs, err := s.store.ListOnce(ctx, store.Query{
		Collection: models.MessagesCollection(viewer.UID, conversationID),
		Filters:    []store.Filter{{Field: "read", Value: false}},
	})
	if err != nil {
		return err
	}
	for _, doc := range msgs {
		if err := s.store.Write(ctx, doc.Path, map[string]any{"read": true}, true); err != nil {
			return err
		}
	}
	return nil
}

// participantSummary loads the actor's own summary copy, verifying both that
// the conversation exists in their mailbox and that they participate.
func (s *Service) participantSummary(ctx context.Context, actor models.Identity, conversationID string) (*models.ConversationSummary, error) {
	if actor.UID == "" {
		return nil, models.NewNotAuthenticatedError("Sign in first")
	}
	doc, err := s.store.GetOnce(ctx, models.ConversationSummaryPath(actor.UID, conversationID))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, models.NewNotFoundError("conversation", conversationID)
		}
		return nil, err
	}
	return models.ConversationSummaryFromFields(doc.ID, doc.Fields), nil
}

func withParticipant(participants []string, uid string) []string {
	out := make([]string, 0, len(participants)+1)
	seen := map[string]bool{}
	for _, p := range append(append([]string{}, participants...), uid) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
