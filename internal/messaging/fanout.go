package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// FanoutError reports a mirrored write that did not reach every
// participant. Failed names the mailboxes still missing the write; the
// caller retries just those with Redeliver, and because every copy reuses
// the same document ID a retry overwrites instead of duplicating.
type FanoutError struct {
	Op             string
	ConversationID string
	Failed         []string
	errs           []error
}

func newFanoutError(op, conversationID string, failed []string, errs []error) *FanoutError {
	return &FanoutError{Op: op, ConversationID: conversationID, Failed: failed, errs: errs}
}

func (e *FanoutError) Error() string {
	return fmt.Sprintf("%s fan-out for conversation %s failed for participants: %s",
		e.Op, e.ConversationID, strings.Join(e.Failed, ", "))
}

func (e *FanoutError) Unwrap() error {
	return errors.Join(e.errs...)
}

// IsFanoutError extracts a FanoutError from err, if present.
func IsFanoutError(err error) (*FanoutError, bool) {
	var fe *FanoutError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// SendMessage writes the message into every participant's mailbox copy of
// the conversation and bumps each summary's lastMessage preview. One message
// ID is generated up front and shared by all copies. The sender's own copy
// starts read; everyone else's starts unread. On partial failure the
// returned FanoutError names the mailboxes to retry.
func (s *Service) SendMessage(ctx context.Context, sender models.Identity, conversationID, content string) (*models.Message, error) {
	if content == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	summary, err := s.participantSummary(ctx, sender, conversationID)
	if err != nil {
		return nil, err
	}
	msg := &models.Message{
		ID:                s.newID(),
		ConversationID:    conversationID,
		Content:           content,
		SenderID:          sender.UID,
		SenderDisplayName: sender.DisplayName,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.Redeliver(ctx, msg, summary.Participants); err != nil {
		return msg, err
	}
	return msg, nil
}

// Redeliver writes msg into the given participants' mailboxes. Used both for
// the initial fan-out and for retrying the participants a FanoutError named;
// the shared message ID makes re-delivery idempotent.
func (s *Service) Redeliver(ctx context.Context, msg *models.Message, participants []string) error {
	span, ctx := observability.NewSpan(ctx, "messaging.fanout")
	defer span.End()
	span.AddAttributes(
		attribute.String("conversation_id", msg.ConversationID),
		attribute.Int("participants", len(participants)),
	)

	preview := map[string]any{
		"lastMessage":   msg.Content,
		"lastMessageAt": models.EncodeTime(msg.CreatedAt),
	}
	var failed []string
	var errs []error
	for _, uid := range participants {
		mirrored := *msg
		mirrored.Read = uid == msg.SenderID
		if err := s.store.Write(ctx, models.MessagePath(uid, msg.ConversationID, msg.ID), mirrored.ToFields(), false); err != nil {
			failed = append(failed, uid)
			errs = append(errs, err)
			observability.FanoutWrites.WithLabelValues("error").Inc()
			continue
		}
		if err := s.store.Write(ctx, models.ConversationSummaryPath(uid, msg.ConversationID), preview, true); err != nil {
			failed = append(failed, uid)
			errs = append(errs, err)
			observability.FanoutWrites.WithLabelValues("error").Inc()
			continue
		}
		observability.FanoutWrites.WithLabelValues("ok").Inc()
	}
	for _, uid := range participants {
		cache.InvalidateMailbox(ctx, uid)
	}
	if len(failed) > 0 {
		s.logger.Warn("message fan-out incomplete",
			"conversation_id", msg.ConversationID, "message_id", msg.ID, "failed", failed)
		ferr := newFanoutError("send", msg.ConversationID, failed, errs)
		span.SetError(ferr)
		return ferr
	}
	return nil
}

// EditMessage rewrites a sent message's content in every participant's copy
// and marks it edited. Only the original sender may edit.
func (s *Service) EditMessage(ctx context.Context, editor models.Identity, conversationID, messageID, content string) error {
	if content == "" {
		return models.NewValidationError("Message content is required")
	}
	summary, err := s.participantSummary(ctx, editor, conversationID)
	if err != nil {
		return err
	}
	doc, err := s.store.GetOnce(ctx, models.MessagePath(editor.UID, conversationID, messageID))
	if err != nil {
		return models.NewNotFoundError("message", messageID)
	}
	msg := models.MessageFromFields(doc.ID, doc.Fields)
	if msg.SenderID != editor.UID {
		return models.NewForbiddenError("Only the sender can edit a message")
	}
	patch := map[string]any{"content": content, "edited": true}
	var failed []string
	var errs []error
	for _, uid := range summary.Participants {
		if err := s.store.Write(ctx, models.MessagePath(uid, conversationID, messageID), patch, true); err != nil {
			failed = append(failed, uid)
			errs = append(errs, err)
		}
	}
	if len(failed) > 0 {
		return newFanoutError("edit", conversationID, failed, errs)
	}
	return nil
}
