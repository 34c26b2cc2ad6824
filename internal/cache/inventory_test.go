package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type themaList []struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	prev := GetClient()
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(prev) })
	return mr
}

func TestGetSetJSONRoundTrip(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	in := themaList{{ID: "t1", Name: "general"}, {ID: "t2", Name: "gaming"}}
	SetJSON(ctx, ThemataKey, in, ThemataTTL)

	var out themaList
	require.True(t, GetJSON(ctx, ThemataKey, &out))
	assert.Equal(t, in, out)
}

func TestGetJSONMiss(t *testing.T) {
	withMiniredis(t)
	var out themaList
	assert.False(t, GetJSON(context.Background(), "absent", &out))
}

func TestInvalidateMailbox(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	SetJSON(ctx, MailboxKey("u1"), themaList{}, MailboxTTL)
	var out themaList
	require.True(t, GetJSON(ctx, MailboxKey("u1"), &out))

	InvalidateMailbox(ctx, "u1")
	assert.False(t, GetJSON(ctx, MailboxKey("u1"), &out))
}

func TestEntriesExpire(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	SetJSON(ctx, ThemataKey, themaList{{ID: "t1"}}, time.Second)
	mr.FastForward(2 * time.Second)

	var out themaList
	assert.False(t, GetJSON(ctx, ThemataKey, &out))
}

func TestNilClientIsSafe(t *testing.T) {
	prev := GetClient()
	SetClient(nil)
	t.Cleanup(func() { SetClient(prev) })

	ctx := context.Background()
	SetJSON(ctx, ThemataKey, themaList{}, ThemataTTL)
	var out themaList
	assert.False(t, GetJSON(ctx, ThemataKey, &out))
	Invalidate(ctx, ThemataKey)
}
