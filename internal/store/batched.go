package store

import "sync"

// BatchedStore buffers entries from concurrent scan workers so they can be
// committed in one transaction. Later entries for the same path replace
// earlier ones.
type BatchedStore struct {
	mu      sync.Mutex
	order   []string
	entries map[string]Entry
}

// NewBatchedStore returns an empty batch.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{entries: make(map[string]Entry)}
}

// Add buffers e.
func (b *BatchedStore) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[e.Path]; !ok {
		b.order = append(b.order, e.Path)
	}
	b.entries[e.Path] = e
}

// Len returns the number of buffered paths.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

// Drain returns the buffered entries in insertion order and empties the
// batch.
func (b *BatchedStore) Drain() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, 0, len(b.order))
	for _, p := range b.order {
		out = append(out, b.entries[p])
	}
	b.order = nil
	b.entries = make(map[string]Entry)
	return out
}
