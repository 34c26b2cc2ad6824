package models

import "time"

// Comment belongs to exactly one thread. ParentID points at another comment
// in the same thread, or is empty for a top-level comment. Creator display
// fields are denormalized so a comment renders without a user lookup.
type Comment struct {
	ID                 string    `json:"id"`
	Content            string    `json:"content"`
	CreatedBy          string    `json:"created_by"`
	CreatorDisplayName string    `json:"creator_display_name"`
	CreatorHandle      string    `json:"creator_handle"`
	CreatorPhotoURL    string    `json:"creator_photo_url"`
	CreatedAt          time.Time `json:"created_at"`
	ParentID           string    `json:"parent_id,omitempty"`
	Reactions          Reactions `json:"reactions"`
}

// TreeID implements tree.Item.
func (c *Comment) TreeID() string { return c.ID }

// TreeParentID implements tree.Item.
func (c *Comment) TreeParentID() string { return c.ParentID }

// ToFields converts the comment to its document wire form. parentId is nil
// for top-level comments, matching what remote clients expect back.
func (c *Comment) ToFields() map[string]any {
	var parent any
	if c.ParentID != "" {
		parent = c.ParentID
	}
	return map[string]any{
		"content":            c.Content,
		"createdBy":          c.CreatedBy,
		"creatorDisplayName": c.CreatorDisplayName,
		"creatorHandle":      c.CreatorHandle,
		"creatorPhotoURL":    c.CreatorPhotoURL,
		"createdAt":          EncodeTime(c.CreatedAt),
		"parentId":           parent,
		"reactions":          c.Reactions.ToFields(),
	}
}

// CommentFromFields decodes a comment document.
func CommentFromFields(id string, fields map[string]any) *Comment {
	return &Comment{
		ID:                 id,
		Content:            fieldString(fields, "content"),
		CreatedBy:          fieldString(fields, "createdBy"),
		CreatorDisplayName: fieldString(fields, "creatorDisplayName"),
		CreatorHandle:      fieldString(fields, "creatorHandle"),
		CreatorPhotoURL:    fieldString(fields, "creatorPhotoURL"),
		CreatedAt:          DecodeTime(fields["createdAt"]),
		ParentID:           fieldString(fields, "parentId"),
		Reactions:          fieldReactions(fields, "reactions"),
	}
}
