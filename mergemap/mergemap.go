package mergemap

import (
	"iter"
	"sort"

	"github.com/arkdb/ark"
	"github.com/arkdb/ark/codec"
)

// tailAbsorptionThreshold bounds how large two adjacent runs may be and
// still be opportunistically merged into one on commit, keeping the run
// count from growing without bound under a steady trickle of writes.
const tailAbsorptionThreshold = 4096

// MergeMap is a persistent ordered map: an in-memory overlay of pending
// writes and tombstones over any number of immutable, append-only sorted
// on-disk runs (oldest first).
type MergeMap[K ordered, V any] struct {
	reader *ark.Reader

	kc codec.Codec[K]
	vc codec.Codec[V]
	ec codec.Codec[Entry[K, V]]
	rc codec.Codec[Run[K, V]]
	rtc codec.Codec[Root[K, V]]

	overlay *overlay[K, V]
	runs    []Run[K, V]
	runRefs []codec.Ref[Run[K, V]]
	rootRef *codec.Ref[Root[K, V]]
	count   uint64
}

// Open constructs a MergeMap over reader, eagerly decoding every run named
// by rootRef (if any) so lookups are pure in-memory binary searches.
func Open[K ordered, V any](reader *ark.Reader, rootRef *codec.Ref[Root[K, V]], kc codec.Codec[K], vc codec.Codec[V]) (*MergeMap[K, V], error) {
	ec := EntryCodec(kc, vc)
	rc := RunCodec(ec)
	m := &MergeMap[K, V]{
		reader:  reader,
		kc:      kc,
		vc:      vc,
		ec:      ec,
		rc:      rc,
		rtc:     RootCodec[K, V](),
		overlay: newOverlay[K, V](),
	}
	if rootRef == nil {
		return m, nil
	}
	m.rootRef = rootRef
	root, err := ark.Read(reader, *rootRef, m.rtc)
	if err != nil {
		return nil, err
	}
	m.count = root.Count
	m.runRefs = root.Runs
	m.runs = make([]Run[K, V], len(root.Runs))
	for i, ref := range root.Runs {
		run, err := ark.Read(reader, ref, m.rc)
		if err != nil {
			return nil, err
		}
		m.runs[i] = run
	}
	return m, nil
}

// Len reports the number of live key-value pairs.
func (m *MergeMap[K, V]) Len() uint64 { return m.count }

// IsEmpty reports whether the map holds no keys.
func (m *MergeMap[K, V]) IsEmpty() bool { return m.count == 0 }

func searchRun[K ordered, V any](run Run[K, V], key K) (Entry[K, V], bool) {
	entries := run.Entries
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Key >= key })
	if i < len(entries) && entries[i].Key == key {
		return entries[i], true
	}
	var zero Entry[K, V]
	return zero, false
}

// Get returns the value for key and whether it is currently present. The
// overlay is checked first since it reflects the newest mutation; runs are
// then searched newest to oldest.
func (m *MergeMap[K, V]) Get(key K) (V, bool) {
	var zero V
	if e, ok := m.overlay.Get(key); ok {
		if e.Value == nil {
			return zero, false
		}
		return *e.Value, true
	}
	for i := len(m.runs) - 1; i >= 0; i-- {
		if e, ok := searchRun(m.runs[i], key); ok {
			if e.Value == nil {
				return zero, false
			}
			return *e.Value, true
		}
	}
	return zero, false
}

// ContainsKey reports whether key is present.
func (m *MergeMap[K, V]) ContainsKey(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Insert adds or replaces key's value, returning the prior value if any.
func (m *MergeMap[K, V]) Insert(key K, value V) (V, bool) {
	prev, existed := m.Get(key)
	m.overlay.Put(key, &value)
	if !existed {
		m.count++
	}
	return prev, existed
}

// Remove deletes key if present, recording a tombstone in the overlay so
// the deletion survives commit even if key is also present in an older run.
func (m *MergeMap[K, V]) Remove(key K) (V, bool) {
	prev, existed := m.Get(key)
	if existed {
		m.overlay.Put(key, nil)
		m.count--
	}
	return prev, existed
}

type pullSource[K ordered, V any] struct {
	nextFn func() (Entry[K, V], bool)
}

func (p *pullSource[K, V]) next() (Entry[K, V], bool) { return p.nextFn() }

type sliceSource[K ordered, V any] struct {
	entries []Entry[K, V]
	i       int
}

func (s *sliceSource[K, V]) next() (Entry[K, V], bool) {
	if s.i >= len(s.entries) {
		var zero Entry[K, V]
		return zero, false
	}
	e := s.entries[s.i]
	s.i++
	return e, true
}

// Iter returns a lazy, ascending-key enumeration of every live key-value
// pair, merging the overlay and all on-disk runs with newest-wins
// semantics and skipping tombstoned keys.
func (m *MergeMap[K, V]) Iter() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		sources := make([]mergeSource[K, V], 0, len(m.runs)+1)
		for _, run := range m.runs {
			sources = append(sources, &sliceSource[K, V]{entries: run.Entries})
		}
		next, stop := iter.Pull(m.overlay.Iterator())
		defer stop()
		sources = append(sources, &pullSource[K, V]{nextFn: next})

		cursor := newMergeCursor(sources)
		for {
			k, v, ok := cursor.next()
			if !ok {
				return
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Keys enumerates every live key in ascending order.
func (m *MergeMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.Iter() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values enumerates every live value, in ascending key order.
func (m *MergeMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.Iter() {
			if !yield(v) {
				return
			}
		}
	}
}

func mergeRunsNewestWins[K ordered, V any](a, b Run[K, V]) Run[K, V] {
	out := make([]Entry[K, V], 0, len(a.Entries)+len(b.Entries))
	i, j := 0, 0
	for i < len(a.Entries) && j < len(b.Entries) {
		ea, eb := a.Entries[i], b.Entries[j]
		switch {
		case ea.Key < eb.Key:
			out = append(out, ea)
			i++
		case ea.Key > eb.Key:
			out = append(out, eb)
			j++
		default:
			out = append(out, eb)
			i++
			j++
		}
	}
	out = append(out, a.Entries[i:]...)
	out = append(out, b.Entries[j:]...)
	return Run[K, V]{Entries: out}
}

// absorbTail opportunistically merges the newest two runs into one,
// repeatedly, as long as their combined size stays under
// tailAbsorptionThreshold. It never prunes tombstones, since a merged pair
// may still be shadowing an older run.
func absorbTail[K ordered, V any](w *ark.Writer, rc codec.Codec[Run[K, V]], runs []Run[K, V], refs []codec.Ref[Run[K, V]]) ([]Run[K, V], []codec.Ref[Run[K, V]], error) {
	for len(runs) >= 2 {
		a, b := runs[len(runs)-2], runs[len(runs)-1]
		if len(a.Entries)+len(b.Entries) >= tailAbsorptionThreshold {
			break
		}
		merged := mergeRunsNewestWins(a, b)
		ref, err := ark.Append(w, merged, rc)
		if err != nil {
			return nil, nil, err
		}
		runs = append(runs[:len(runs)-2], merged)
		refs = append(refs[:len(refs)-2], ref)
	}
	return runs, refs, nil
}

// Commit materializes the overlay as a new run, opportunistically absorbs
// it into the tail of the run list, and appends a new Root. If the overlay
// held no pending mutations, it returns the existing root reference
// unchanged (nil if there was none).
func (m *MergeMap[K, V]) Commit(w *ark.Writer) (*codec.Ref[Root[K, V]], error) {
	if m.overlay.Len() == 0 {
		return m.rootRef, nil
	}
	var newEntries []Entry[K, V]
	for e := range m.overlay.Iterator() {
		newEntries = append(newEntries, e)
	}
	newRun := Run[K, V]{Entries: newEntries}
	newRef, err := ark.Append(w, newRun, m.rc)
	if err != nil {
		return nil, err
	}

	runs := append(append([]Run[K, V]{}, m.runs...), newRun)
	refs := append(append([]codec.Ref[Run[K, V]]{}, m.runRefs...), newRef)

	runs, refs, err = absorbTail(w, m.rc, runs, refs)
	if err != nil {
		return nil, err
	}

	root := Root[K, V]{Runs: refs, Count: m.count}
	rootRef, err := ark.Append(w, root, m.rtc)
	if err != nil {
		return nil, err
	}

	m.runs = runs
	m.runRefs = refs
	m.rootRef = &rootRef
	m.overlay.Reset()
	return &rootRef, nil
}

// Migrate rewrites m into a fresh MergeMap committed to dst: every live
// key-value pair is read from m's source file and reinserted into a new
// map, running each value through vm first (nil when V owns no codec.Ref
// fields) the same way HashMap.Migrate does.
func (m *MergeMap[K, V]) Migrate(dst *ark.Writer, vm ark.Migrator[V]) (*codec.Ref[Root[K, V]], error) {
	fresh, err := Open[K, V](nil, nil, m.kc, m.vc)
	if err != nil {
		return nil, err
	}
	for key, value := range m.Iter() {
		migrated, err := ark.MigrateValue(value, m.reader, dst, vm)
		if err != nil {
			return nil, err
		}
		fresh.Insert(key, migrated)
	}
	return fresh.Commit(dst)
}
