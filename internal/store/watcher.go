package store

import "sync"

// watcher is one live subscription. Snapshots are appended to its queue in
// change order and handed to the callback by a single drainer at a time, so
// the callback never runs concurrently with itself and never observes an
// older snapshot after a newer one.
type watcher struct {
	query Query
	fn    func(Snapshot)

	mu        sync.Mutex
	queue     []Snapshot
	draining  bool
	cancelled bool
}

func (w *watcher) enqueue(docs []Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelled {
		return
	}
	w.queue = append(w.queue, Snapshot{Collection: w.query.Collection, Docs: docs})
}

func (w *watcher) drain() {
	w.mu.Lock()
	if w.draining {
		w.mu.Unlock()
		return
	}
	w.draining = true
	for len(w.queue) > 0 && !w.cancelled {
		snap := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()
		w.fn(snap)
		w.mu.Lock()
	}
	w.draining = false
	w.mu.Unlock()
}

func (w *watcher) cancel() {
	w.mu.Lock()
	w.cancelled = true
	w.queue = nil
	w.mu.Unlock()
}
