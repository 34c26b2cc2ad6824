// Package store defines the document-store surface the sync engine consumes
// and provides the drivers that back it. The store's only live-read
// primitive is a query subscription that delivers the complete current
// result set on every change, never a delta.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by GetOnce when no document exists at the path.
var ErrNotFound = errors.New("store: document not found")

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Document is one stored document with its decoded field map.
type Document struct {
	Path      string
	ID        string
	Fields    map[string]any
	UpdatedAt time.Time
}

// Filter is an equality constraint on a document field.
type Filter struct {
	Field string
	Value any
}

// OrderBy names the field a query's result set is sorted on.
type OrderBy struct {
	Field string
	Desc  bool
}

// Query selects the direct documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    *OrderBy
}

// Snapshot is the complete current result set of a subscribed query.
// Consumers must fully replace their local view with it; snapshots within
// one subscription arrive in the order changes occurred.
type Snapshot struct {
	Collection string
	Docs       []Document
}

// CancelFunc cancels a subscription. Idempotent; safe to call repeatedly.
type CancelFunc func()

// Store is the remote document store surface consumed by the sync engine.
type Store interface {
	Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (CancelFunc, error)
	GetOnce(ctx context.Context, path string) (*Document, error)
	Write(ctx context.Context, path string, fields map[string]any, merge bool) error
	Delete(ctx context.Context, path string) error
	ListOnce(ctx context.Context, q Query) ([]Document, error)
}

// CollectionOf returns the collection a document path belongs to, and the
// document ID. Returns ok=false for a path with no collection segment.
func CollectionOf(path string) (collection, id string, ok bool) {
	i := strings.LastIndexByte(path, '/')
	if i <= 0 || i == len(path)-1 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}

// MergeFields applies src onto a copy of dst with per-key map merging:
// top-level scalar fields overwrite, map-valued fields merge key by key, and
// a nil value inside a map deletes that key. This makes concurrent writers
// that touch disjoint map keys (two participants reacting at once)
// independent instead of competing whole-map replacements.
func MergeFields(dst, src map[string]any) map[string]any {
	out := copyFields(dst)
	for k, v := range src {
		sub, isMap := asFieldMap(v)
		if !isMap {
			out[k] = cloneValue(v)
			continue
		}
		existing, hadMap := asFieldMap(out[k])
		if !hadMap {
			existing = map[string]any{}
		} else {
			existing = copyFields(existing)
		}
		for mk, mv := range sub {
			if mv == nil {
				delete(existing, mk)
				continue
			}
			existing[mk] = cloneValue(mv)
		}
		out[k] = existing
	}
	return out
}

func asFieldMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return copyFields(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(tv))
		copy(out, tv)
		return out
	default:
		return v
	}
}

// matches reports whether the document satisfies every filter of the query.
func matches(q Query, doc Document) bool {
	for _, f := range q.Filters {
		if !valuesEqual(doc.Fields[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// sortDocs orders the result set. Ties (and queries with no OrderBy) fall
// back to document ID so identical inputs always produce identical output.
func sortDocs(q Query, docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if q.OrderBy != nil {
			c := compareValues(docs[i].Fields[q.OrderBy.Field], docs[j].Fields[q.OrderBy.Field])
			if c != 0 {
				if q.OrderBy.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return docs[i].ID < docs[j].ID
	})
}

func compareValues(a, b any) int {
	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return strings.Compare(as, bs)
}

func toTime(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case time.Time:
		return tv, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, tv)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}
