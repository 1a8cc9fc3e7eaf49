package trigram

import (
	"sort"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/arkdb/ark"
	"github.com/arkdb/ark/codec"
	"github.com/arkdb/ark/mergemap"
)

// QueryResult is one ranked match from Query.
type QueryResult[K any] struct {
	Key        K
	Similarity float64
}

// TrigramMap is a fuzzy-search index: a mergemap from trigram (as a Go
// string, which sorts the same way the byte span it covers would) to a
// postings list of the keys containing it. A bloom filter over every
// indexed trigram short-circuits lookups and queries for trigrams that
// were never inserted, without touching the underlying runs.
type TrigramMap[K comparable, V any] struct {
	mm      *mergemap.MergeMap[string, []Posting[K, V]]
	extract Extractor[K]
	less    func(a, b K) bool
	filter  *bloom.BloomFilter
}

// Open constructs a TrigramMap over reader. less, if non-nil, breaks ties
// between equal-similarity Query results; pass nil to accept an arbitrary
// tie order.
func Open[K comparable, V any](reader *ark.Reader, rootRef *codec.Ref[mergemap.Root[string, []Posting[K, V]]], kc codec.Codec[K], vc codec.Codec[V], extract Extractor[K], less func(a, b K) bool) (*TrigramMap[K, V], error) {
	pc := PostingCodec(kc, vc)
	psc := PostingsCodec(pc)
	mm, err := mergemap.Open[string, []Posting[K, V]](reader, rootRef, codec.StringCodec(), psc)
	if err != nil {
		return nil, err
	}
	t := &TrigramMap[K, V]{mm: mm, extract: extract, less: less}
	t.rebuildFilter()
	return t, nil
}

func (t *TrigramMap[K, V]) rebuildFilter() {
	n := t.mm.Len()
	if n == 0 {
		n = 1
	}
	t.filter = bloom.NewWithEstimates(uint(n)*8, 0.01)
	for tg := range t.mm.Keys() {
		t.filter.Add([]byte(tg))
	}
}

// Get uses key's first trigram as a lookup shortcut, scanning its postings
// for an exact key match.
func (t *TrigramMap[K, V]) Get(key K) (V, bool) {
	var zero V
	trigrams := t.extract(key)
	if len(trigrams) == 0 {
		return zero, false
	}
	first := trigrams[0]
	if !t.filter.Test([]byte(first)) {
		return zero, false
	}
	postings, ok := t.mm.Get(first)
	if !ok {
		return zero, false
	}
	for _, p := range postings {
		if p.Key == key {
			return p.Value, true
		}
	}
	return zero, false
}

// ContainsKey reports whether key is indexed.
func (t *TrigramMap[K, V]) ContainsKey(key K) bool {
	_, ok := t.Get(key)
	return ok
}

// Insert indexes key under every trigram it contains. If key was already
// indexed, its prior postings are removed first so no stale entry lingers.
func (t *TrigramMap[K, V]) Insert(key K, value V) {
	if t.ContainsKey(key) {
		t.Remove(key)
	}
	for _, tg := range t.extract(key) {
		postings, _ := t.mm.Get(tg)
		postings = append(postings, Posting[K, V]{Key: key, Value: value})
		t.mm.Insert(tg, postings)
		t.filter.Add([]byte(tg))
	}
}

// Remove deletes every posting for key, dropping a trigram entry entirely
// once its postings list becomes empty. Reports whether key was found.
func (t *TrigramMap[K, V]) Remove(key K) bool {
	removedAny := false
	for _, tg := range t.extract(key) {
		postings, ok := t.mm.Get(tg)
		if !ok {
			continue
		}
		idx := -1
		for i, p := range postings {
			if p.Key == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		removedAny = true
		postings = append(postings[:idx], postings[idx+1:]...)
		if len(postings) == 0 {
			t.mm.Remove(tg)
		} else {
			t.mm.Insert(tg, postings)
		}
	}
	return removedAny
}

// Query collects the candidate keys sharing any trigram with key, ranks
// each by Jaccard similarity between the query and candidate trigram
// sets, and returns them most-similar first.
func (t *TrigramMap[K, V]) Query(key K) []QueryResult[K] {
	qset := toSet(t.extract(key))
	if len(qset) == 0 {
		return nil
	}
	seen := make(map[K]struct{})
	for tg := range qset {
		if !t.filter.Test([]byte(tg)) {
			continue
		}
		postings, ok := t.mm.Get(tg)
		if !ok {
			continue
		}
		for _, p := range postings {
			seen[p.Key] = struct{}{}
		}
	}
	results := make([]QueryResult[K], 0, len(seen))
	for k := range seen {
		cset := toSet(t.extract(k))
		results = append(results, QueryResult[K]{Key: k, Similarity: jaccard(qset, cset)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if t.less != nil {
			return t.less(results[i].Key, results[j].Key)
		}
		return false
	})
	return results
}

// Commit delegates to the underlying mergemap.
func (t *TrigramMap[K, V]) Commit(w *ark.Writer) (*codec.Ref[mergemap.Root[string, []Posting[K, V]]], error) {
	return t.mm.Commit(w)
}

// postingsMigrator adapts a Migrator[V] to the postings-list value type
// the underlying mergemap actually stores, migrating each posting's Value
// field and leaving Key untouched.
type postingsMigrator[K comparable, V any] struct {
	vm ark.Migrator[V]
}

func (pm postingsMigrator[K, V]) Migrate(ps []Posting[K, V], src *ark.Reader, dst *ark.Writer) ([]Posting[K, V], error) {
	out := make([]Posting[K, V], len(ps))
	for i, p := range ps {
		v, err := pm.vm.Migrate(p.Value, src, dst)
		if err != nil {
			return nil, err
		}
		out[i] = Posting[K, V]{Key: p.Key, Value: v}
	}
	return out, nil
}

// Migrate rewrites t into a fresh TrigramMap committed to dst, relocating
// every indexed value through vm (nil when V owns no codec.Ref fields) the
// same way the underlying mergemap's own Migrate does.
func (t *TrigramMap[K, V]) Migrate(dst *ark.Writer, vm ark.Migrator[V]) (*codec.Ref[mergemap.Root[string, []Posting[K, V]]], error) {
	var pm ark.Migrator[[]Posting[K, V]]
	if vm != nil {
		pm = postingsMigrator[K, V]{vm: vm}
	}
	return t.mm.Migrate(dst, pm)
}

// StringLess is a ready-made tie-breaker for Open's less parameter when K
// is string, whether carrying text or raw binary content.
func StringLess(a, b string) bool { return a < b }
