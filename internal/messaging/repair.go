package messaging

import (
	"context"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/store"
)

// Repair reconciles the mirrored summary copies of one conversation after a
// partial fan-out left them divergent. The copy with the newest
// lastMessageAt is authoritative; every other participant's copy (including
// a missing one) is rewritten from it. Returns the UIDs whose copies were
// repaired. Running Repair on a healthy conversation changes nothing.
func (s *Service) Repair(ctx context.Context, anchorUID, conversationID string) ([]string, error) {
	anchor, err := s.store.GetOnce(ctx, models.ConversationSummaryPath(anchorUID, conversationID))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, models.NewNotFoundError("conversation", conversationID)
		}
		return nil, err
	}
	participants := models.ConversationSummaryFromFields(anchor.ID, anchor.Fields).Participants

	copies := make(map[string]*models.ConversationSummary, len(participants))
	var authoritative *models.ConversationSummary
	for _, uid := range participants {
		doc, err := s.store.GetOnce(ctx, models.ConversationSummaryPath(uid, conversationID))
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		summary := models.ConversationSummaryFromFields(doc.ID, doc.Fields)
		copies[uid] = summary
		if authoritative == nil || summary.LastMessageAt.After(authoritative.LastMessageAt) {
			authoritative = summary
		}
	}
	if authoritative == nil {
		return nil, models.NewNotFoundError("conversation", conversationID)
	}

	fields := authoritative.ToFields()
	var repaired []string
	for _, uid := range participants {
		existing, ok := copies[uid]
		if ok && summariesEqual(existing, authoritative) {
			continue
		}
		if err := s.store.Write(ctx, models.ConversationSummaryPath(uid, conversationID), fields, false); err != nil {
			return repaired, err
		}
		cache.InvalidateMailbox(ctx, uid)
		repaired = append(repaired, uid)
	}
	if len(repaired) > 0 {
		s.logger.Info("conversation summaries repaired",
			"conversation_id", conversationID, "repaired", repaired)
	}
	return repaired, nil
}

func summariesEqual(a, b *models.ConversationSummary) bool {
	if a.Name != b.Name || a.Image != b.Image || a.Type != b.Type ||
		a.LastMessage != b.LastMessage || !a.LastMessageAt.Equal(b.LastMessageAt) {
		return false
	}
	if len(a.Participants) != len(b.Participants) {
		return false
	}
	for i := range a.Participants {
		if a.Participants[i] != b.Participants[i] {
			return false
		}
	}
	return true
}
