package models

import "time"

// Thread is a discussion inside a thema. CommentCount is denormalized and
// rewritten by the forum service after every comment add or delete.
type Thread struct {
	ID                 string    `json:"id"`
	ThemaID            string    `json:"thema_id"`
	Title              string    `json:"title"`
	InitialComment     string    `json:"initial_comment"`
	CreatedBy          string    `json:"created_by"`
	CreatorDisplayName string    `json:"creator_display_name"`
	CreatedAt          time.Time `json:"created_at"`
	Reactions          Reactions `json:"reactions"`
	CommentCount       int       `json:"comment_count"`
}

// ToFields converts the thread to its document wire form.
func (t *Thread) ToFields() map[string]any {
	return map[string]any{
		"title":              t.Title,
		"initialComment":     t.InitialComment,
		"createdBy":          t.CreatedBy,
		"creatorDisplayName": t.CreatorDisplayName,
		"createdAt":          EncodeTime(t.CreatedAt),
		"reactions":          t.Reactions.ToFields(),
		"commentCount":       t.CommentCount,
	}
}

// ThreadFromFields decodes a thread document.
func ThreadFromFields(id string, fields map[string]any) *Thread {
	return &Thread{
		ID:                 id,
		Title:              fieldString(fields, "title"),
		InitialComment:     fieldString(fields, "initialComment"),
		CreatedBy:          fieldString(fields, "createdBy"),
		CreatorDisplayName: fieldString(fields, "creatorDisplayName"),
		CreatedAt:          DecodeTime(fields["createdAt"]),
		Reactions:          fieldReactions(fields, "reactions"),
		CommentCount:       fieldInt(fields, "commentCount"),
	}
}
