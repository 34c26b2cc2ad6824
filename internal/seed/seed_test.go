package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"agora/internal/forum"
	"agora/internal/messaging"
	"agora/internal/models"
	"agora/internal/store"
	livesync "agora/internal/sync"
	"agora/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCreatesRequestedCounts(t *testing.T) {
	st := store.NewMemoryStore()
	opts := Options{
		NumUsers:                5,
		NumThemata:              2,
		ThreadsPerThema:         2,
		CommentsPerThread:       3,
		NumConversations:        2,
		MessagesPerConversation: 2,
		Seed:                    42,
	}

	res, err := Run(context.Background(), st, opts, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Users)
	assert.Equal(t, 2, res.Themata)
	assert.Equal(t, 4, res.Threads)
	assert.Equal(t, 12, res.Comments)
	assert.Equal(t, 2, res.Conversations)
	assert.Equal(t, 4, res.Messages)

	svc := forum.NewService(st, livesync.NewHub(), quietLogger())
	themata, err := svc.ListThemata(context.Background())
	require.NoError(t, err)
	assert.Len(t, themata, 2)

	for _, thema := range themata {
		threads, err := svc.ListThreads(context.Background(), models.Identity{UID: "u_spectator"}, thema.ID)
		require.NoError(t, err)
		assert.Len(t, threads, 2)
		for _, tv := range threads {
			assert.Equal(t, 3, tv.Thread.CommentCount)
		}
	}
}

func TestFactoryIsReproducible(t *testing.T) {
	gen := func() []string {
		f := NewFactory(7)
		out := make([]string, 0, 6)
		for i := 0; i < 3; i++ {
			id := f.Identity()
			out = append(out, id.UID, id.Handle)
		}
		return out
	}

	assert.Equal(t, gen(), gen())
}

func TestSeededMailboxesAreMirrored(t *testing.T) {
	st := store.NewMemoryStore()
	opts := Options{NumUsers: 4, NumThemata: 1, ThreadsPerThema: 1, CommentsPerThread: 1, NumConversations: 3, MessagesPerConversation: 2, Seed: 7}

	_, err := Run(context.Background(), st, opts, quietLogger())
	require.NoError(t, err)

	// Every conversation copy must carry the same message count on both
	// sides of the fan-out.
	svc := messaging.NewService(st, livesync.NewHub(), quietLogger())
	f := NewFactory(opts.Seed)
	counts := map[string]int{}
	for i := 0; i < opts.NumUsers; i++ {
		viewer := f.Identity()
		convs, err := svc.ListConversations(context.Background(), viewer)
		require.NoError(t, err)
		for _, cv := range convs {
			msgs, err := svc.ListMessages(context.Background(), viewer, cv.ID)
			require.NoError(t, err)
			if prev, ok := counts[cv.ID]; ok {
				assert.Equal(t, prev, len(msgs), "conversation %s copies disagree", cv.ID)
			}
			counts[cv.ID] = len(msgs)
		}
	}
	// Private conversations between the same pair share a deterministic ID,
	// so the distinct count can be lower than the run total.
	assert.NotEmpty(t, counts)
}

func TestRunCleanRemovesPreviousThemata(t *testing.T) {
	st := store.NewMemoryStore()
	opts := Options{NumUsers: 3, NumThemata: 2, ThreadsPerThema: 1, CommentsPerThread: 1, NumConversations: 1, MessagesPerConversation: 1, Seed: 9}

	_, err := Run(context.Background(), st, opts, quietLogger())
	require.NoError(t, err)

	opts.Clean = true
	_, err = Run(context.Background(), st, opts, quietLogger())
	require.NoError(t, err)

	svc := forum.NewService(st, livesync.NewHub(), quietLogger())
	themata, err := svc.ListThemata(context.Background())
	require.NoError(t, err)
	assert.Len(t, themata, 2, "second run should replace, not accumulate")
}

func TestFactoryThemaNamesStayValid(t *testing.T) {
	f := NewFactory(1)
	seen := map[string]bool{}
	for i := 0; i < 60; i++ {
		name := f.ThemaName(i)
		assert.False(t, seen[name], "duplicate thema name %q", name)
		assert.NoError(t, validation.ValidateThemaName(name))
		seen[name] = true
	}
}
