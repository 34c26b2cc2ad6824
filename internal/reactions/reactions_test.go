package reactions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/models"
	"agora/internal/store"
)

func TestToggle(t *testing.T) {
	t.Parallel()

	t.Run("set on empty state", func(t *testing.T) {
		t.Parallel()

		next, action := Toggle(models.Reactions{}, "u1", "👍")
		assert.Equal(t, ActionSet, action)
		assert.Equal(t, models.Reactions{"u1": "👍"}, next)
	})

	t.Run("same kind removes", func(t *testing.T) {
		t.Parallel()

		next, action := Toggle(models.Reactions{"u1": "👍"}, "u1", "👍")
		assert.Equal(t, ActionRemoved, action)
		assert.Empty(t, next)
	})

	t.Run("different kind replaces", func(t *testing.T) {
		t.Parallel()

		next, action := Toggle(models.Reactions{"u1": "👍"}, "u1", "❤️")
		assert.Equal(t, ActionSet, action)
		assert.Equal(t, models.Reactions{"u1": "❤️"}, next)
	})

	t.Run("input map is not mutated", func(t *testing.T) {
		t.Parallel()

		current := models.Reactions{"u1": "👍"}
		Toggle(current, "u1", "👍")
		Toggle(current, "u2", "❤️")
		assert.Equal(t, models.Reactions{"u1": "👍"}, current)
	})
}

func TestCountsByKind(t *testing.T) {
	t.Parallel()

	counts := CountsByKind(models.Reactions{
		"u1": "👍",
		"u2": "👍",
		"u3": "❤️",
		"u4": "custom",
	})
	assert.Equal(t, 2, counts["👍"])
	assert.Equal(t, 1, counts["❤️"])
	assert.Equal(t, 1, counts["custom"], "unknown kinds are tallied, not dropped")
	assert.Equal(t, 0, counts["😂"], "known kinds are present at zero")
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	r := models.Reactions{"u1": "👍", "u2": "❤️"}
	s := Summarize(r, "u2")
	assert.Equal(t, "❤️", s.ViewerReaction)
	assert.Equal(t, 1, s.Counts["👍"])

	s = Summarize(r, "stranger")
	assert.Empty(t, s.ViewerReaction)
}

func TestServiceToggle(t *testing.T) {
	t.Parallel()

	viewer := models.Identity{UID: "u1"}

	t.Run("set then remove round-trips through the store", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemoryStore()
		svc := NewService(st, nil)
		ctx := context.Background()
		path := "themata/t/threads/th/comments/c1"
		require.NoError(t, st.Write(ctx, path, map[string]any{"content": "hi"}, false))

		action, err := svc.Toggle(ctx, path, viewer, "👍")
		require.NoError(t, err)
		assert.Equal(t, ActionSet, action)

		doc, err := st.GetOnce(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, models.Reactions{"u1": "👍"}, models.ReactionsFromFields(doc.Fields, "reactions"))
		assert.Equal(t, "hi", doc.Fields["content"], "merge write must not clobber other fields")

		action, err = svc.Toggle(ctx, path, viewer, "👍")
		require.NoError(t, err)
		assert.Equal(t, ActionRemoved, action)

		doc, err = st.GetOnce(ctx, path)
		require.NoError(t, err)
		assert.Empty(t, models.ReactionsFromFields(doc.Fields, "reactions"))
	})

	t.Run("missing document is a silent no-op", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemoryStore()
		svc := NewService(st, nil)

		_, err := svc.Toggle(context.Background(), "themata/x/threads/y/comments/gone", viewer, "👍")
		assert.NoError(t, err)
	})

	t.Run("anonymous viewer is rejected", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemoryStore()
		svc := NewService(st, nil)

		_, err := svc.Toggle(context.Background(), "themata/x/threads/y/comments/c", models.Identity{}, "👍")
		assert.True(t, models.HasCode(err, models.CodeNotAuthenticated))
	})

	t.Run("concurrent toggles by distinct viewers all land", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemoryStore()
		svc := NewService(st, nil)
		ctx := context.Background()
		path := "themata/t/threads/th/comments/c1"
		require.NoError(t, st.Write(ctx, path, map[string]any{"content": "hi"}, false))

		uids := []string{"a", "b", "c", "d", "e"}
		var wg sync.WaitGroup
		for _, uid := range uids {
			wg.Add(1)
			go func(uid string) {
				defer wg.Done()
				_, err := svc.Toggle(ctx, path, models.Identity{UID: uid}, "👍")
				assert.NoError(t, err)
			}(uid)
		}
		wg.Wait()

		doc, err := st.GetOnce(ctx, path)
		require.NoError(t, err)
		got := models.ReactionsFromFields(doc.Fields, "reactions")
		require.Len(t, got, len(uids))
		for _, uid := range uids {
			assert.Equal(t, "👍", got[uid])
		}
	})
}
