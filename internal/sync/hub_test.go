package sync

import (
	"context"
	"testing"

	"agora/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFansPrefixUnsubscribeAcrossRegistries(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	hub := NewHub()

	a := NewRegistry(st, nil)
	b := NewRegistry(st, nil)
	hub.Attach(a)
	hub.Attach(b)

	q := store.Query{Collection: "themata/t1/threads/th1/comments"}
	other := store.Query{Collection: "themata/t2/threads/th9/comments"}
	require.NoError(t, a.SubscribeScope(context.Background(), q.Collection, q, func(store.Snapshot) {}))
	require.NoError(t, b.SubscribeScope(context.Background(), q.Collection, q, func(store.Snapshot) {}))
	require.NoError(t, b.SubscribeScope(context.Background(), other.Collection, other, func(store.Snapshot) {}))

	hub.UnsubscribePrefix("themata/t1/threads/th1/")

	assert.Equal(t, 0, a.Len())
	assert.Equal(t, []string{other.Collection}, b.ActiveScopes())
}

func TestHubDetachCancelsEverything(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	hub := NewHub()

	r := NewRegistry(st, nil)
	hub.Attach(r)

	q := store.Query{Collection: "mailboxes/u1/conversations"}
	require.NoError(t, r.SubscribeScope(context.Background(), q.Collection, q, func(store.Snapshot) {}))
	require.Equal(t, 1, hub.Len())

	hub.Detach(r)

	assert.Equal(t, 0, hub.Len())
	assert.Equal(t, 0, r.Len())

	// Detaching an unknown registry is a no-op.
	hub.Detach(NewRegistry(st, nil))
}
