// Package reactions implements the toggle-one-reaction-per-person model used
// on comments and messages. A person holds at most one reaction kind per
// item; tapping the held kind removes it, tapping any other kind replaces it.
package reactions

import (
	"agora/internal/models"
)

// Action is the outcome a toggle resolved to.
type Action int

const (
	// ActionSet means the viewer's reaction became the tapped kind.
	ActionSet Action = iota
	// ActionRemoved means the viewer's existing reaction was cleared.
	ActionRemoved
)

func (a Action) String() string {
	if a == ActionSet {
		return "set"
	}
	return "removed"
}

// Toggle computes the next reaction state after viewerUID taps kind. The
// input map is never mutated.
func Toggle(current models.Reactions, viewerUID, kind string) (models.Reactions, Action) {
	next := current.Clone()
	if current[viewerUID] == kind {
		delete(next, viewerUID)
		return next, ActionRemoved
	}
	next[viewerUID] = kind
	return next, ActionSet
}

// CountsByKind tallies reactions per kind. Every known kind is present even
// at zero so the UI renders a stable row; unknown kinds that appear in the
// data are counted too rather than dropped.
func CountsByKind(r models.Reactions) map[string]int {
	counts := make(map[string]int, len(models.KnownReactionKinds))
	for _, kind := range models.KnownReactionKinds {
		counts[kind] = 0
	}
	for _, kind := range r {
		counts[kind]++
	}
	return counts
}

// ViewerReaction returns the kind viewerUID currently holds, if any.
func ViewerReaction(r models.Reactions, viewerUID string) (string, bool) {
	kind, ok := r[viewerUID]
	return kind, ok
}

// Summary is the render-ready aggregate for one item: per-kind totals plus
// the viewer's own reaction, empty when the viewer holds none.
type Summary struct {
	Counts         map[string]int `json:"counts"`
	ViewerReaction string         `json:"viewerReaction,omitempty"`
}

// Summarize builds the aggregate view of r for viewerUID.
func Summarize(r models.Reactions, viewerUID string) Summary {
	s := Summary{Counts: CountsByKind(r)}
	if kind, ok := ViewerReaction(r, viewerUID); ok {
		s.ViewerReaction = kind
	}
	return s
}
