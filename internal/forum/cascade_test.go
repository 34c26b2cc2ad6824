package forum

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/models"
	"agora/internal/store"
)

// recordingStore wraps a Store and records delete order. failOnce makes the
// next delete of the given path fail.
type recordingStore struct {
	store.Store

	mu       sync.Mutex
	deletes  []string
	failOnce map[string]bool
}

func newRecordingStore(inner store.Store) *recordingStore {
	return &recordingStore{Store: inner, failOnce: map[string]bool{}}
}

func (r *recordingStore) Delete(ctx context.Context, path string) error {
	r.mu.Lock()
	if r.failOnce[path] {
		delete(r.failOnce, path)
		r.mu.Unlock()
		return errors.New("simulated delete failure")
	}
	r.deletes = append(r.deletes, path)
	r.mu.Unlock()
	return r.Store.Delete(ctx, path)
}

func (r *recordingStore) deleted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.deletes))
	copy(out, r.deletes)
	return out
}

// prefixRecorder records UnsubscribePrefix calls.
type prefixRecorder struct {
	mu       sync.Mutex
	prefixes []string
}

func (p *prefixRecorder) UnsubscribePrefix(prefix string) {
	p.mu.Lock()
	p.prefixes = append(p.prefixes, prefix)
	p.mu.Unlock()
}

func TestCascadeDeleteThread(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("comments are deleted before the thread", func(t *testing.T) {
		t.Parallel()

		rec := newRecordingStore(store.NewMemoryStore())
		svc := NewService(rec, nil, nil)
		themaID, threadID := seedThread(t, svc)
		for _, content := range []string{"one", "two", "three"} {
			_, err := svc.AddComment(ctx, alice, themaID, threadID, "", content)
			require.NoError(t, err)
		}

		require.NoError(t, NewCascade(rec, nil, nil).DeleteThread(ctx, themaID, threadID))

		deletes := rec.deleted()
		require.Len(t, deletes, 4)
		threadPath := models.ThreadPath(themaID, threadID)
		assert.Equal(t, threadPath, deletes[3], "thread must be deleted last")
		for _, p := range deletes[:3] {
			assert.Contains(t, p, threadPath+"/comments/")
		}

		_, err := rec.GetOnce(ctx, threadPath)
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("partial failure keeps the thread and re-run finishes", func(t *testing.T) {
		t.Parallel()

		rec := newRecordingStore(store.NewMemoryStore())
		svc := NewService(rec, nil, nil)
		themaID, threadID := seedThread(t, svc)
		c1, err := svc.AddComment(ctx, alice, themaID, threadID, "", "one")
		require.NoError(t, err)
		_, err = svc.AddComment(ctx, alice, themaID, threadID, "", "two")
		require.NoError(t, err)

		rec.mu.Lock()
		rec.failOnce[models.CommentPath(themaID, threadID, c1.ID)] = true
		rec.mu.Unlock()

		cascade := NewCascade(rec, nil, nil)
		require.Error(t, cascade.DeleteThread(ctx, themaID, threadID))
		_, err = rec.GetOnce(ctx, models.ThreadPath(themaID, threadID))
		assert.NoError(t, err, "thread survives a partial cascade")

		require.NoError(t, cascade.DeleteThread(ctx, themaID, threadID))
		_, err = rec.GetOnce(ctx, models.ThreadPath(themaID, threadID))
		assert.True(t, store.IsNotFound(err))
		docs, err := rec.ListOnce(ctx, store.Query{Collection: models.CommentsCollection(themaID, threadID)})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("cancels subscriptions under the thread path", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		themaID, threadID := seedThread(t, svc)
		scopes := &prefixRecorder{}

		require.NoError(t, NewCascade(st, scopes, nil).DeleteThread(ctx, themaID, threadID))
		assert.Equal(t, []string{models.ThreadPath(themaID, threadID) + "/"}, scopes.prefixes)
	})
}

func TestCascadeDeleteThema(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := store.NewMemoryStore()
	svc := NewService(st, nil, nil)
	thema, err := svc.CreateThema(ctx, alice, "doomed", "")
	require.NoError(t, err)
	for _, title := range []string{"t1", "t2"} {
		thread, err := svc.CreateThread(ctx, alice, thema.ID, title, "body")
		require.NoError(t, err)
		_, err = svc.AddComment(ctx, bob, thema.ID, thread.ID, "", "hi")
		require.NoError(t, err)
	}

	require.NoError(t, svc.DeleteThema(ctx, admin, thema.ID))

	_, err = st.GetOnce(ctx, models.ThemaPath(thema.ID))
	assert.True(t, store.IsNotFound(err))
	docs, err := st.ListOnce(ctx, store.Query{Collection: models.ThreadsCollection(thema.ID)})
	require.NoError(t, err)
	assert.Empty(t, docs)

	// idempotent: the thema is already gone
	require.NoError(t, svc.DeleteThema(ctx, admin, thema.ID))
}

func TestDeleteThemaRequiresAdmin(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	themaID, _ := seedThread(t, svc)
	err := svc.DeleteThema(context.Background(), alice, themaID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))
}
