package models

import "time"

// Thema is a top-level forum category. It owns zero or more threads.
type Thema struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToFields converts the thema to its document wire form.
func (t *Thema) ToFields() map[string]any {
	return map[string]any{
		"name":        t.Name,
		"description": t.Description,
		"createdBy":   t.CreatedBy,
		"createdAt":   EncodeTime(t.CreatedAt),
	}
}

// ThemaFromFields decodes a thema document.
func ThemaFromFields(id string, fields map[string]any) *Thema {
	return &Thema{
		ID:          id,
		Name:        fieldString(fields, "name"),
		Description: fieldString(fields, "description"),
		CreatedBy:   fieldString(fields, "createdBy"),
		CreatedAt:   DecodeTime(fields["createdAt"]),
	}
}
