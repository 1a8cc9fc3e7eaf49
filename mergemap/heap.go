package mergemap

import "container/heap"

// mergeItem is one candidate in the k-way merge: an entry plus the
// generation it came from. Higher generation wins ties, so the overlay
// (the highest generation) always shadows every run, and a newer run
// shadows an older one.
type mergeItem[K ordered, V any] struct {
	entry      Entry[K, V]
	generation int
	source     int // index into the merge's source list, for advancing it
}

type mergeHeap[K ordered, V any] []mergeItem[K, V]

func (h mergeHeap[K, V]) Len() int { return len(h) }

func (h mergeHeap[K, V]) Less(i, j int) bool {
	if h[i].entry.Key != h[j].entry.Key {
		return h[i].entry.Key < h[j].entry.Key
	}
	return h[i].generation > h[j].generation
}

func (h mergeHeap[K, V]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap[K, V]) Push(x any) { *h = append(*h, x.(mergeItem[K, V])) }

func (h *mergeHeap[K, V]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeSource yields entries from one generation (the overlay or one run)
// in ascending key order.
type mergeSource[K ordered, V any] interface {
	next() (Entry[K, V], bool)
}

// mergeCursor drives a k-way merge across sources of increasing generation
// (oldest run first, overlay last), emitting each distinct key exactly
// once with the highest-generation value, skipping tombstones.
type mergeCursor[K ordered, V any] struct {
	h       mergeHeap[K, V]
	sources []mergeSource[K, V]
}

func newMergeCursor[K ordered, V any](sources []mergeSource[K, V]) *mergeCursor[K, V] {
	c := &mergeCursor[K, V]{sources: sources}
	for i, s := range sources {
		if e, ok := s.next(); ok {
			heap.Push(&c.h, mergeItem[K, V]{entry: e, generation: i, source: i})
		}
	}
	return c
}

// next returns the next live (key, value) pair in ascending key order, or
// ok=false once the merge is exhausted.
func (c *mergeCursor[K, V]) next() (K, V, bool) {
	for c.h.Len() > 0 {
		top := heap.Pop(&c.h).(mergeItem[K, V])
		key := top.entry.Key
		winner := top.entry
		// Drain and discard every older-generation duplicate of this key.
		for c.h.Len() > 0 && c.h[0].entry.Key == key {
			dup := heap.Pop(&c.h).(mergeItem[K, V])
			c.advance(dup.source)
		}
		c.advance(top.source)
		if winner.Value == nil {
			continue
		}
		return key, *winner.Value, true
	}
	var zk K
	var zv V
	return zk, zv, false
}

func (c *mergeCursor[K, V]) advance(source int) {
	if e, ok := c.sources[source].next(); ok {
		heap.Push(&c.h, mergeItem[K, V]{entry: e, generation: source, source: source})
	}
}
