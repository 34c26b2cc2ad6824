package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and by the memory
// STORE_DRIVER. Snapshot delivery within one subscription is ordered:
// snapshots are enqueued per watcher while the store lock is held, so a
// watcher never sees an older snapshot after a newer one.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]memDoc
	watchers map[int]*watcher
	nextID   int
}

type memDoc struct {
	fields    map[string]any
	updatedAt time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]memDoc),
		watchers: make(map[int]*watcher),
	}
}

func (s *MemoryStore) Subscribe(_ context.Context, q Query, fn func(Snapshot)) (CancelFunc, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	w := &watcher{query: q, fn: fn}
	s.watchers[id] = w
	w.enqueue(s.resultSetLocked(q))
	s.mu.Unlock()

	// Initial snapshot is delivered before Subscribe returns.
	w.drain()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
			w.cancel()
		})
	}
	return cancel, nil
}

func (s *MemoryStore) GetOnce(_ context.Context, path string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	_, id, _ := CollectionOf(path)
	return &Document{
		Path:      path,
		ID:        id,
		Fields:    copyFields(doc.fields),
		UpdatedAt: doc.updatedAt,
	}, nil
}

func (s *MemoryStore) Write(_ context.Context, path string, fields map[string]any, merge bool) error {
	s.mu.Lock()
	next := copyFields(fields)
	if merge {
		base := map[string]any{}
		if existing, ok := s.docs[path]; ok {
			base = existing.fields
		}
		next = MergeFields(base, fields)
	}
	s.docs[path] = memDoc{fields: next, updatedAt: time.Now().UTC()}
	pending := s.collectLocked(path)
	s.mu.Unlock()

	dispatch(pending)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	if _, ok := s.docs[path]; !ok {
		s.mu.Unlock()
		return nil // deleting an absent document is a no-op
	}
	delete(s.docs, path)
	pending := s.collectLocked(path)
	s.mu.Unlock()

	dispatch(pending)
	return nil
}

func (s *MemoryStore) ListOnce(_ context.Context, q Query) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultSetLocked(q), nil
}

// collectLocked recomputes the result set for every watcher of the mutated
// collection and enqueues it while the store lock is still held, so snapshots
// are enqueued in the order mutations occurred. Draining happens outside the
// lock.
func (s *MemoryStore) collectLocked(path string) []*watcher {
	collection, _, ok := CollectionOf(path)
	if !ok {
		return nil
	}
	var pending []*watcher
	for _, w := range s.watchers {
		if w.query.Collection != collection {
			continue
		}
		w.enqueue(s.resultSetLocked(w.query))
		pending = append(pending, w)
	}
	return pending
}

func dispatch(pending []*watcher) {
	for _, w := range pending {
		w.drain()
	}
}

func (s *MemoryStore) resultSetLocked(q Query) []Document {
	var out []Document
	for path, doc := range s.docs {
		collection, id, ok := CollectionOf(path)
		if !ok || collection != q.Collection {
			continue
		}
		d := Document{
			Path:      path,
			ID:        id,
			Fields:    copyFields(doc.fields),
			UpdatedAt: doc.updatedAt,
		}
		if !matches(q, d) {
			continue
		}
		out = append(out, d)
	}
	sortDocs(q, out)
	return out
}
