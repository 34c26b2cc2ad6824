package models

import "time"

// Conversation types.
const (
	ConversationPrivate = "private"
	ConversationGroup   = "group"
)

// ConversationSummary is the metadata of a conversation as mirrored into one
// participant's mailbox. Every participant owns an independent copy under
// the same conversation ID; renames and deletes must be applied to each copy
// or the participants' views diverge.
type ConversationSummary struct {
	ID            string    `json:"id"`
	Participants  []string  `json:"participants"`
	Name          string    `json:"name"`
	Image         string    `json:"image"`
	Type          string    `json:"type"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ToFields converts the summary to its document wire form.
func (s *ConversationSummary) ToFields() map[string]any {
	return map[string]any{
		"participants":  append([]string(nil), s.Participants...),
		"name":          s.Name,
		"image":         s.Image,
		"type":          s.Type,
		"lastMessage":   s.LastMessage,
		"lastMessageAt": EncodeTime(s.LastMessageAt),
	}
}

// ConversationSummaryFromFields decodes a mirrored summary document.
func ConversationSummaryFromFields(id string, fields map[string]any) *ConversationSummary {
	return &ConversationSummary{
		ID:            id,
		Participants:  fieldStrings(fields, "participants"),
		Name:          fieldString(fields, "name"),
		Image:         fieldString(fields, "image"),
		Type:          fieldString(fields, "type"),
		LastMessage:   fieldString(fields, "lastMessage"),
		LastMessageAt: DecodeTime(fields["lastMessageAt"]),
	}
}

// Message is one direct message as it appears in a participant's mailbox.
// The same message ID is used for every participant's copy, so retrying a
// failed fan-out write overwrites rather than duplicates.
type Message struct {
	ID                string    `json:"id"`
	ConversationID    string    `json:"conversation_id"`
	Content           string    `json:"content"`
	SenderID          string    `json:"sender_id"`
	SenderDisplayName string    `json:"sender_display_name"`
	CreatedAt         time.Time `json:"created_at"`
	Read              bool      `json:"read"`
	Edited            bool      `json:"edited"`
}

// ToFields converts the message to its document wire form.
func (m *Message) ToFields() map[string]any {
	return map[string]any{
		"content":           m.Content,
		"senderId":          m.SenderID,
		"senderDisplayName": m.SenderDisplayName,
		"createdAt":         EncodeTime(m.CreatedAt),
		"read":              m.Read,
		"edited":            m.Edited,
	}
}

// MessageFromFields decodes a message document.
func MessageFromFields(id string, fields map[string]any) *Message {
	return &Message{
		ID:                id,
		Content:           fieldString(fields, "content"),
		SenderID:          fieldString(fields, "senderId"),
		SenderDisplayName: fieldString(fields, "senderDisplayName"),
		CreatedAt:         DecodeTime(fields["createdAt"]),
		Read:              fieldBool(fields, "read"),
		Edited:            fieldBool(fields, "edited"),
	}
}
