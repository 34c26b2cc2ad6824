package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeItem struct {
	id       string
	parentID string
}

func (f fakeItem) TreeID() string       { return f.id }
func (f fakeItem) TreeParentID() string { return f.parentID }

func items(pairs ...[2]string) []fakeItem {
	out := make([]fakeItem, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, fakeItem{id: p[0], parentID: p[1]})
	}
	return out
}

func flatIDs[T Item](flat []FlatNode[T]) []string {
	ids := make([]string, 0, len(flat))
	for _, f := range flat {
		ids = append(ids, f.Item.TreeID())
	}
	return ids
}

func TestBuildForest(t *testing.T) {
	t.Parallel()

	t.Run("empty input yields empty forest", func(t *testing.T) {
		t.Parallel()

		forest := BuildForest([]fakeItem{})
		assert.Empty(t, forest)
		assert.Empty(t, Flatten(forest))
	})

	t.Run("nested replies attach under their parents", func(t *testing.T) {
		t.Parallel()

		forest := BuildForest(items(
			[2]string{"a", ""},
			[2]string{"b", "a"},
			[2]string{"c", "b"},
			[2]string{"d", "a"},
		))
		require.Len(t, forest, 1)
		assert.Equal(t, "a", forest[0].Item.TreeID())
		require.Len(t, forest[0].Children, 2)
		assert.Equal(t, "b", forest[0].Children[0].Item.TreeID())
		assert.Equal(t, "d", forest[0].Children[1].Item.TreeID())
		require.Len(t, forest[0].Children[0].Children, 1)
		assert.Equal(t, "c", forest[0].Children[0].Children[0].Item.TreeID())
	})

	t.Run("orphan becomes a root instead of being dropped", func(t *testing.T) {
		t.Parallel()

		forest := BuildForest(items([2]string{"a", "missing"}))
		require.Len(t, forest, 1)
		assert.Equal(t, "a", forest[0].Item.TreeID())
		assert.Empty(t, forest[0].Children)
	})

	t.Run("every item appears exactly once", func(t *testing.T) {
		t.Parallel()

		in := items(
			[2]string{"r1", ""},
			[2]string{"r2", ""},
			[2]string{"c1", "r1"},
			[2]string{"c2", "gone"},
			[2]string{"c3", "c1"},
		)
		flat := Flatten(BuildForest(in))
		require.Len(t, flat, len(in))
		seen := map[string]bool{}
		for _, f := range flat {
			assert.False(t, seen[f.Item.TreeID()], "duplicate %s", f.Item.TreeID())
			seen[f.Item.TreeID()] = true
		}
		for _, it := range in {
			assert.True(t, seen[it.id], "missing %s", it.id)
		}
	})

	t.Run("self-referencing item is kept as a root", func(t *testing.T) {
		t.Parallel()

		forest := BuildForest(items([2]string{"a", "a"}))
		require.Len(t, forest, 1)
		assert.Empty(t, forest[0].Children)
	})

	t.Run("root and child order follow input order", func(t *testing.T) {
		t.Parallel()

		flat := Flatten(BuildForest(items(
			[2]string{"r2", ""},
			[2]string{"r1", ""},
			[2]string{"c2", "r1"},
			[2]string{"c1", "r1"},
		)))
		assert.Equal(t, []string{"r2", "r1", "c2", "c1"}, flatIDs(flat))
	})
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	t.Run("depths follow nesting", func(t *testing.T) {
		t.Parallel()

		// A, then B replying to A, then top-level C: rendered A(0), B(1), C(0).
		flat := Flatten(BuildForest(items(
			[2]string{"A", ""},
			[2]string{"B", "A"},
			[2]string{"C", ""},
		)))
		require.Len(t, flat, 3)
		assert.Equal(t, []string{"A", "B", "C"}, flatIDs(flat))
		assert.Equal(t, 0, flat[0].Depth)
		assert.Equal(t, 1, flat[1].Depth)
		assert.Equal(t, 0, flat[2].Depth)
	})

	t.Run("recompute is deterministic", func(t *testing.T) {
		t.Parallel()

		in := items(
			[2]string{"a", ""},
			[2]string{"b", "a"},
			[2]string{"c", "missing"},
			[2]string{"d", "b"},
		)
		first := Flatten(BuildForest(in))
		second := Flatten(BuildForest(in))
		assert.Equal(t, first, second)
	})
}
