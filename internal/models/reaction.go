package models

// Reactions maps participant UID to the single reaction kind that
// participant currently holds on an item. Per-kind counts are derived.
type Reactions map[string]string

// Known reaction kinds offered by the UI. The aggregator tallies unknown
// kinds too; this list only drives zero-count entries for rendering.
var KnownReactionKinds = []string{"👍", "❤️", "😂", "🎉", "😮", "😢"}

// ReactionsFromFields decodes the reactions map out of a document field map.
// Missing or malformed values decode as an empty map.
func ReactionsFromFields(fields map[string]any, key string) Reactions {
	return fieldReactions(fields, key)
}

// Clone returns a shallow copy. Reaction state is treated as immutable;
// every mutation produces a new map.
func (r Reactions) Clone() Reactions {
	out := make(Reactions, len(r))
	for uid, kind := range r {
		out[uid] = kind
	}
	return out
}

// ToFields converts the reaction map to its wire form.
func (r Reactions) ToFields() map[string]any {
	out := make(map[string]any, len(r))
	for uid, kind := range r {
		out[uid] = kind
	}
	return out
}
