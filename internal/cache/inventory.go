package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ThemataKey    = "themata"
	MailboxPrefix = "mailbox:%s"
)

// Thread and comment views carry the viewer's own reaction, so they are
// never cached; only viewer-neutral (themata) and viewer-owned (mailbox)
// lists are.
const (
	ThemataTTL = 5 * time.Minute
	MailboxTTL = 30 * time.Second
)

func MailboxKey(uid string) string {
	return fmt.Sprintf(MailboxPrefix, uid)
}

// GetJSON reads key into out. Returns false on miss, decode failure, or when
// no Redis client is configured.
func GetJSON(ctx context.Context, key string, out any) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// SetJSON stores v under key with the given TTL. Best-effort; errors are
// dropped, a miss next time just hits the store.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	client.Set(ctx, key, raw, ttl)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateThemata(ctx context.Context) {
	Invalidate(ctx, ThemataKey)
}

func InvalidateMailbox(ctx context.Context, uid string) {
	Invalidate(ctx, MailboxKey(uid))
}
