package messaging

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/models"
	"agora/internal/store"
)

var (
	ana  = models.Identity{UID: "ana", DisplayName: "Ana"}
	ben  = models.Identity{UID: "ben", DisplayName: "Ben"}
	cleo = models.Identity{UID: "cleo", DisplayName: "Cleo"}
)

// faultyStore fails writes whose path starts with any registered prefix,
// once per registration.
type faultyStore struct {
	store.Store

	mu       sync.Mutex
	failures map[string]int
}

func newFaultyStore(inner store.Store) *faultyStore {
	return &faultyStore{Store: inner, failures: map[string]int{}}
}

func (f *faultyStore) failWrites(prefix string, times int) {
	f.mu.Lock()
	f.failures[prefix] = times
	f.mu.Unlock()
}

func (f *faultyStore) Write(ctx context.Context, path string, fields map[string]any, merge bool) error {
	f.mu.Lock()
	for prefix, left := range f.failures {
		if left > 0 && strings.HasPrefix(path, prefix) {
			f.failures[prefix] = left - 1
			f.mu.Unlock()
			return errors.New("simulated write failure")
		}
	}
	f.mu.Unlock()
	return f.Store.Write(ctx, path, fields, merge)
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewService(st, nil, nil), st
}

func TestPrivateConversationID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ana_ben", PrivateConversationID("ana", "ben"))
	assert.Equal(t, "ana_ben", PrivateConversationID("ben", "ana"), "derivation is order independent")
}

func TestCreateConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("private conversation mirrors into both mailboxes", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		summary, err := svc.CreateConversation(ctx, ana, []string{"ben"}, "", "", models.ConversationPrivate)
		require.NoError(t, err)
		assert.Equal(t, "ana_ben", summary.ID)

		for _, uid := range []string{"ana", "ben"} {
			doc, err := st.GetOnce(ctx, models.ConversationSummaryPath(uid, summary.ID))
			require.NoError(t, err)
			got := models.ConversationSummaryFromFields(doc.ID, doc.Fields)
			assert.Equal(t, []string{"ana", "ben"}, got.Participants)
			assert.Equal(t, models.ConversationPrivate, got.Type)
		}
	})

	t.Run("creating the same private conversation twice is not a duplicate", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		first, err := svc.CreateConversation(ctx, ana, []string{"ben"}, "", "", models.ConversationPrivate)
		require.NoError(t, err)
		second, err := svc.CreateConversation(ctx, ben, []string{"ana"}, "", "", models.ConversationPrivate)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		docs, err := st.ListOnce(ctx, store.Query{Collection: models.MailboxCollection("ana")})
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("group conversation needs a name", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.CreateConversation(ctx, ana, []string{"ben", "cleo"}, "", "", models.ConversationGroup)
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})

	t.Run("private conversation with three people is rejected", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.CreateConversation(ctx, ana, []string{"ben", "cleo"}, "", "", models.ConversationPrivate)
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})
}

func TestSendMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newGroup := func(t *testing.T, svc *Service) string {
		t.Helper()
		summary, err := svc.CreateConversation(ctx, ana, []string{"ben", "cleo"}, "the three", "", models.ConversationGroup)
		require.NoError(t, err)
		return summary.ID
	}

	t.Run("every participant receives a copy under the same message id", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		convID := newGroup(t, svc)

		msg, err := svc.SendMessage(ctx, ana, convID, "hello all")
		require.NoError(t, err)

		for _, uid := range []string{"ana", "ben", "cleo"} {
			doc, err := st.GetOnce(ctx, models.MessagePath(uid, convID, msg.ID))
			require.NoError(t, err, "copy missing for %s", uid)
			got := models.MessageFromFields(doc.ID, doc.Fields)
			assert.Equal(t, "hello all", got.Content)
			assert.Equal(t, "ana", got.SenderID)
			assert.Equal(t, uid == "ana", got.Read, "only the sender's copy starts read")

			sum, err := st.GetOnce(ctx, models.ConversationSummaryPath(uid, convID))
			require.NoError(t, err)
			assert.Equal(t, "hello all", models.ConversationSummaryFromFields(sum.ID, sum.Fields).LastMessage)
		}
	})

	t.Run("partial failure names the missed participants and retry completes", func(t *testing.T) {
		t.Parallel()

		faulty := newFaultyStore(store.NewMemoryStore())
		svc := NewService(faulty, nil, nil)
		convID := newGroup(t, svc)
		faulty.failWrites(models.MailboxCollection("ben")+"/"+convID+"/messages/", 1)

		msg, err := svc.SendMessage(ctx, ana, convID, "flaky")
		require.Error(t, err)
		fe, ok := IsFanoutError(err)
		require.True(t, ok)
		assert.Equal(t, []string{"ben"}, fe.Failed)

		// retry only the failed mailbox; same id, so this is an overwrite
		require.NoError(t, svc.Redeliver(ctx, msg, fe.Failed))

		for _, uid := range []string{"ana", "ben", "cleo"} {
			docs, err := faulty.ListOnce(ctx, store.Query{Collection: models.MessagesCollection(uid, convID)})
			require.NoError(t, err)
			assert.Len(t, docs, 1, "exactly one copy for %s", uid)
		}
	})

	t.Run("sender must participate", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		convID := newGroup(t, svc)
		outsider := models.Identity{UID: "mallory"}
		_, err := svc.SendMessage(ctx, outsider, convID, "let me in")
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestEditMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, st := newTestService(t)
	summary, err := svc.CreateConversation(ctx, ana, []string{"ben"}, "", "", models.ConversationPrivate)
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, ana, summary.ID, "typo")
	require.NoError(t, err)

	t.Run("only the sender may edit", func(t *testing.T) {
		err := svc.EditMessage(ctx, ben, summary.ID, msg.ID, "hijack")
		assert.True(t, models.HasCode(err, models.CodeForbidden))
	})

	t.Run("edit lands in every copy with the edited flag", func(t *testing.T) {
		require.NoError(t, svc.EditMessage(ctx, ana, summary.ID, msg.ID, "fixed"))
		for _, uid := range []string{"ana", "ben"} {
			doc, err := st.GetOnce(ctx, models.MessagePath(uid, summary.ID, msg.ID))
			require.NoError(t, err)
			got := models.MessageFromFields(doc.ID, doc.Fields)
			assert.Equal(t, "fixed", got.Content)
			assert.True(t, got.Edited)
		}
	})
}

func TestMarkRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, st := newTestService(t)
	summary, err := svc.CreateConversation(ctx, ana, []string{"ben"}, "", "", models.ConversationPrivate)
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, ana, summary.ID, "unread for ben")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, ben, summary.ID))

	doc, err := st.GetOnce(ctx, models.MessagePath("ben", summary.ID, msg.ID))
	require.NoError(t, err)
	assert.True(t, models.MessageFromFields(doc.ID, doc.Fields).Read)
}

func TestRenameConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, st := newTestService(t)
	summary, err := svc.CreateConversation(ctx, ana, []string{"ben", "cleo"}, "old name", "", models.ConversationGroup)
	require.NoError(t, err)

	require.NoError(t, svc.RenameConversation(ctx, ben, summary.ID, "new name"))

	for _, uid := range []string{"ana", "ben", "cleo"} {
		doc, err := st.GetOnce(ctx, models.ConversationSummaryPath(uid, summary.ID))
		require.NoError(t, err)
		assert.Equal(t, "new name", models.ConversationSummaryFromFields(doc.ID, doc.Fields).Name)
	}
}

func TestDeleteConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, st := newTestService(t)
	summary, err := svc.CreateConversation(ctx, ana, []string{"ben"}, "", "", models.ConversationPrivate)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, ana, summary.ID, "soon gone")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(ctx, ana, summary.ID))

	for _, uid := range []string{"ana", "ben"} {
		_, err := st.GetOnce(ctx, models.ConversationSummaryPath(uid, summary.ID))
		assert.True(t, store.IsNotFound(err))
		docs, err := st.ListOnce(ctx, store.Query{Collection: models.MessagesCollection(uid, summary.ID)})
		require.NoError(t, err)
		assert.Empty(t, docs)
	}

	// already gone: no-op
	require.NoError(t, svc.DeleteConversation(ctx, ana, summary.ID))
}

func TestRepair(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("divergent copy converges to the newest", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		summary, err := svc.CreateConversation(ctx, ana, []string{"ben", "cleo"}, "group", "", models.ConversationGroup)
		require.NoError(t, err)
		_, err = svc.SendMessage(ctx, ana, summary.ID, "latest state")
		require.NoError(t, err)

		// ben's copy missed the rename fan-out
		require.NoError(t, st.Write(ctx, models.ConversationSummaryPath("ben", summary.ID),
			map[string]any{"name": "stale", "lastMessageAt": models.EncodeTime(summary.LastMessageAt.Add(-1))}, true))

		repaired, err := svc.Repair(ctx, "ana", summary.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"ben"}, repaired)

		doc, err := st.GetOnce(ctx, models.ConversationSummaryPath("ben", summary.ID))
		require.NoError(t, err)
		got := models.ConversationSummaryFromFields(doc.ID, doc.Fields)
		assert.Equal(t, "group", got.Name)
		assert.Equal(t, "latest state", got.LastMessage)
	})

	t.Run("missing copy is recreated", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		summary, err := svc.CreateConversation(ctx, ana, []string{"ben", "cleo"}, "group", "", models.ConversationGroup)
		require.NoError(t, err)
		require.NoError(t, st.Delete(ctx, models.ConversationSummaryPath("cleo", summary.ID)))

		repaired, err := svc.Repair(ctx, "ana", summary.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"cleo"}, repaired)

		_, err = st.GetOnce(ctx, models.ConversationSummaryPath("cleo", summary.ID))
		assert.NoError(t, err)
	})

	t.Run("healthy conversation is untouched", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		summary, err := svc.CreateConversation(ctx, ana, []string{"ben"}, "", "", models.ConversationPrivate)
		require.NoError(t, err)

		repaired, err := svc.Repair(ctx, "ana", summary.ID)
		require.NoError(t, err)
		assert.Empty(t, repaired)
	})
}
