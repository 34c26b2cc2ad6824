package models

// Identity is the resolved identity of the current caller. It is passed
// explicitly into every operation that needs it; nothing in this codebase
// reads identity from ambient state.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	PhotoURL    string `json:"photo_url"`
	IsAdmin     bool   `json:"is_admin"`
}

// CanModerate reports whether the identity may mutate a document created by
// creatorUID. Documents are mutated only by their creator or an admin.
func (i *Identity) CanModerate(creatorUID string) bool {
	if i == nil {
		return false
	}
	return i.IsAdmin || i.UID == creatorUID
}
