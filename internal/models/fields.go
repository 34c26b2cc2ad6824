package models

import (
	"time"
)

// Field maps are the wire form of a document: what the store hands back in a
// snapshot and what writes carry. Timestamps are encoded as RFC3339Nano UTC
// strings so that every store driver round-trips them identically.

// EncodeTime converts a timestamp to its wire form.
func EncodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// DecodeTime parses a wire timestamp. Tolerates a raw time.Time for drivers
// that keep decoded values in memory.
func DecodeTime(v any) time.Time {
	switch tv := v.(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, tv)
		if err != nil {
			return time.Time{}
		}
		return t
	case time.Time:
		return tv.UTC()
	default:
		return time.Time{}
	}
}

func fieldString(fields map[string]any, key string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return ""
}

func fieldBool(fields map[string]any, key string) bool {
	if b, ok := fields[key].(bool); ok {
		return b
	}
	return false
}

func fieldInt(fields map[string]any, key string) int {
	switch n := fields[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func fieldStrings(fields map[string]any, key string) []string {
	switch v := fields[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func fieldReactions(fields map[string]any, key string) Reactions {
	switch v := fields[key].(type) {
	case Reactions:
		return v.Clone()
	case map[string]string:
		return Reactions(v).Clone()
	case map[string]any:
		out := make(Reactions, len(v))
		for uid, kind := range v {
			if s, ok := kind.(string); ok {
				out[uid] = s
			}
		}
		return out
	default:
		return Reactions{}
	}
}
