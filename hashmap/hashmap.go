package hashmap

import (
	"iter"

	"github.com/arkdb/ark"
	"github.com/arkdb/ark/codec"
)

// HashMap is a persistent 64-ary HAMT over an ark file. See package doc
// for the on-disk/overlay split; operations mutate only the in-memory
// overlay until Commit rewrites the touched paths.
type HashMap[K comparable, V any] struct {
	reader *ark.Reader

	kc  codec.Codec[K]
	vc  codec.Codec[V]
	kvc codec.Codec[KeyValue[K, V]]
	nc  codec.Codec[Node[K, V]]
	rc  codec.Codec[HashRoot[K, V]]

	hasher interface{ hashBytes([]byte) uint64 }

	root        *memNode[K, V]
	rootDiskRef *codec.Ref[Node[K, V]]
	count       uint64
}

// Open constructs a HashMap over reader. If rootRef is non-nil, it is read
// immediately to recover the key count and the root node's location; the
// trie itself is materialized lazily on first mutation or disk descent.
func Open[K comparable, V any](reader *ark.Reader, rootRef *codec.Ref[HashRoot[K, V]], kc codec.Codec[K], vc codec.Codec[V]) (*HashMap[K, V], error) {
	kvc := KeyValueCodec(kc, vc)
	m := &HashMap[K, V]{
		reader: reader,
		kc:     kc,
		vc:     vc,
		kvc:    kvc,
		nc:     NodeCodec(kvc),
		rc:     HashRootCodec[K, V](),
		hasher: newKeyHasher(),
	}
	if rootRef != nil {
		root, err := ark.Read(reader, *rootRef, m.rc)
		if err != nil {
			return nil, err
		}
		m.count = root.Count
		nodeRef := root.Node
		m.rootDiskRef = &nodeRef
	}
	return m, nil
}

func (m *HashMap[K, V]) readNode(ref codec.Ref[Node[K, V]]) (Node[K, V], error) {
	return ark.Read(m.reader, ref, m.nc)
}

func (m *HashMap[K, V]) hash(key K) uint64 {
	return m.hasher.hashBytes(codec.EncodeValue(m.kc, key, codec.DefaultConfig()))
}

// Len reports the number of live key-value pairs.
func (m *HashMap[K, V]) Len() uint64 { return m.count }

// IsEmpty reports whether the map holds no keys.
func (m *HashMap[K, V]) IsEmpty() bool { return m.count == 0 }

func (m *HashMap[K, V]) ensureRoot() error {
	if m.root != nil {
		return nil
	}
	if m.rootDiskRef == nil {
		m.root = &memNode[K, V]{}
		return nil
	}
	diskNode, err := m.readNode(*m.rootDiskRef)
	if err != nil {
		return err
	}
	m.root = newMemNodeFromDisk(diskNode)
	return nil
}

// view resolves the current recursion position to a transient overlay
// node: nd if already materialized, or a freshly decoded (but unstored)
// view of the disk node at ref otherwise. It never mutates the map.
func (m *HashMap[K, V]) view(nd *memNode[K, V], ref *codec.Ref[Node[K, V]]) (*memNode[K, V], error) {
	if nd != nil {
		return nd, nil
	}
	if ref == nil {
		return nil, nil
	}
	n, err := m.readNode(*ref)
	if err != nil {
		return nil, err
	}
	return newMemNodeFromDisk(n), nil
}

// Get returns the value for key and whether it was present. Lookup
// consults, in priority order, the overlay value slot, the overlay child
// slot, the disk value slot, and the disk child slot, matching the split
// invariant that at most one of those four is occupied for any slot.
func (m *HashMap[K, V]) Get(key K) (V, bool, error) {
	return m.getAt(m.root, m.rootDiskRef, m.hash(key), 0, key)
}

// ContainsKey reports whether key is present.
func (m *HashMap[K, V]) ContainsKey(key K) (bool, error) {
	_, ok, err := m.Get(key)
	return ok, err
}

func (m *HashMap[K, V]) getAt(nd *memNode[K, V], ref *codec.Ref[Node[K, V]], hash uint64, depth uint, key K) (V, bool, error) {
	var zero V
	view, err := m.view(nd, ref)
	if err != nil {
		return zero, false, err
	}
	if view == nil {
		return zero, false, nil
	}
	if depth >= 64 {
		for _, kv := range view.memValues {
			if kv.Key == key {
				return kv.Value, true, nil
			}
		}
		for _, r := range view.values {
			kv, err := ark.Read(m.reader, r, m.kvc)
			if err != nil {
				return zero, false, err
			}
			if kv.Key == key {
				return kv.Value, true, nil
			}
		}
		return zero, false, nil
	}
	slot := (hash >> depth) & 0x3F
	if view.memValueMask.Get(slot) {
		kv := view.memValues[view.memValueMask.DenseIndex(slot)]
		if kv.Key == key {
			return kv.Value, true, nil
		}
		return zero, false, nil
	}
	if view.memNodeMask.Get(slot) {
		child := view.memNodes[view.memNodeMask.DenseIndex(slot)]
		return m.getAt(child, nil, hash, depth+6, key)
	}
	if view.valueMask.Get(slot) {
		r := view.values[view.valueMask.DenseIndex(slot)]
		kv, err := ark.Read(m.reader, r, m.kvc)
		if err != nil {
			return zero, false, err
		}
		if kv.Key == key {
			return kv.Value, true, nil
		}
		return zero, false, nil
	}
	if view.nodeMask.Get(slot) {
		r := view.nodes[view.nodeMask.DenseIndex(slot)]
		return m.getAt(nil, &r, hash, depth+6, key)
	}
	return zero, false, nil
}

// Insert adds or replaces key's value, returning the prior value if any.
// Count is incremented only when key is genuinely new.
func (m *HashMap[K, V]) Insert(key K, value V) (V, bool, error) {
	if err := m.ensureRoot(); err != nil {
		var zero V
		return zero, false, err
	}
	prev, existed, err := m.insertAt(m.root, 0, m.hash(key), key, value)
	if err != nil {
		var zero V
		return zero, false, err
	}
	if !existed {
		m.count++
	}
	return prev, existed, nil
}

func (m *HashMap[K, V]) insertAt(nd *memNode[K, V], depth uint, hash uint64, key K, value V) (V, bool, error) {
	var zero V
	if depth >= 64 {
		for i, kv := range nd.memValues {
			if kv.Key == key {
				prev := kv.Value
				nd.memValues[i].Value = value
				return prev, true, nil
			}
		}
		for i, ref := range nd.values {
			kv, err := ark.Read(m.reader, ref, m.kvc)
			if err != nil {
				return zero, false, err
			}
			if kv.Key == key {
				prev := kv.Value
				nd.values = removeSlice(nd.values, i)
				nd.memValues = append(nd.memValues, KeyValue[K, V]{Key: key, Value: value})
				return prev, true, nil
			}
		}
		nd.memValues = append(nd.memValues, KeyValue[K, V]{Key: key, Value: value})
		return zero, false, nil
	}

	slot := (hash >> depth) & 0x3F

	if nd.memNodeMask.Get(slot) {
		child := nd.memNodes[nd.memNodeMask.DenseIndex(slot)]
		return m.insertAt(child, depth+6, hash, key, value)
	}
	if nd.nodeMask.Get(slot) {
		child, err := nd.childFor(slot, m)
		if err != nil {
			return zero, false, err
		}
		return m.insertAt(child, depth+6, hash, key, value)
	}
	if nd.memValueMask.Get(slot) {
		dense := nd.memValueMask.DenseIndex(slot)
		existing := nd.memValues[dense]
		if existing.Key == key {
			prev := existing.Value
			nd.memValues[dense].Value = value
			return prev, true, nil
		}
		nd.memValues = removeSlice(nd.memValues, dense)
		nd.memValueMask = nd.memValueMask.Clear(slot)
		child := &memNode[K, V]{}
		newDense := nd.memNodeMask.DenseIndex(slot)
		nd.memNodes = insertSlice(nd.memNodes, newDense, child)
		nd.memNodeMask = nd.memNodeMask.Set(slot)
		if _, _, err := m.insertAt(child, depth+6, m.hash(existing.Key), existing.Key, existing.Value); err != nil {
			return zero, false, err
		}
		if _, _, err := m.insertAt(child, depth+6, hash, key, value); err != nil {
			return zero, false, err
		}
		return zero, false, nil
	}
	if nd.valueMask.Get(slot) {
		dense := nd.valueMask.DenseIndex(slot)
		ref := nd.values[dense]
		existing, err := ark.Read(m.reader, ref, m.kvc)
		if err != nil {
			return zero, false, err
		}
		if existing.Key == key {
			prev := existing.Value
			nd.values = removeSlice(nd.values, dense)
			nd.valueMask = nd.valueMask.Clear(slot)
			newDense := nd.memValueMask.DenseIndex(slot)
			nd.memValues = insertSlice(nd.memValues, newDense, KeyValue[K, V]{Key: key, Value: value})
			nd.memValueMask = nd.memValueMask.Set(slot)
			return prev, true, nil
		}
		nd.values = removeSlice(nd.values, dense)
		nd.valueMask = nd.valueMask.Clear(slot)
		child := &memNode[K, V]{}
		newDense := nd.memNodeMask.DenseIndex(slot)
		nd.memNodes = insertSlice(nd.memNodes, newDense, child)
		nd.memNodeMask = nd.memNodeMask.Set(slot)
		if _, _, err := m.insertAt(child, depth+6, m.hash(existing.Key), existing.Key, existing.Value); err != nil {
			return zero, false, err
		}
		if _, _, err := m.insertAt(child, depth+6, hash, key, value); err != nil {
			return zero, false, err
		}
		return zero, false, nil
	}

	dense := nd.memValueMask.DenseIndex(slot)
	nd.memValues = insertSlice(nd.memValues, dense, KeyValue[K, V]{Key: key, Value: value})
	nd.memValueMask = nd.memValueMask.Set(slot)
	return zero, false, nil
}

// Remove deletes key if present, returning its last value. Deleting the
// only key from a child subtree prunes that child from its parent's masks.
func (m *HashMap[K, V]) Remove(key K) (V, bool, error) {
	var zero V
	if m.root == nil && m.rootDiskRef == nil {
		return zero, false, nil
	}
	if err := m.ensureRoot(); err != nil {
		return zero, false, err
	}
	prev, removed, err := m.removeAt(m.root, 0, m.hash(key), key)
	if err != nil {
		return zero, false, err
	}
	if removed {
		m.count--
	}
	return prev, removed, nil
}

func (m *HashMap[K, V]) removeAt(nd *memNode[K, V], depth uint, hash uint64, key K) (V, bool, error) {
	var zero V
	if depth >= 64 {
		for i, kv := range nd.memValues {
			if kv.Key == key {
				nd.memValues = append(nd.memValues[:i], nd.memValues[i+1:]...)
				return kv.Value, true, nil
			}
		}
		for i, ref := range nd.values {
			kv, err := ark.Read(m.reader, ref, m.kvc)
			if err != nil {
				return zero, false, err
			}
			if kv.Key == key {
				nd.values = append(nd.values[:i], nd.values[i+1:]...)
				return kv.Value, true, nil
			}
		}
		return zero, false, nil
	}

	slot := (hash >> depth) & 0x3F

	if nd.memNodeMask.Get(slot) {
		dense := nd.memNodeMask.DenseIndex(slot)
		child := nd.memNodes[dense]
		prev, removed, err := m.removeAt(child, depth+6, hash, key)
		if err != nil {
			return zero, false, err
		}
		if removed && childIsEmpty(child) {
			nd.memNodes = removeSlice(nd.memNodes, dense)
			nd.memNodeMask = nd.memNodeMask.Clear(slot)
		}
		return prev, removed, nil
	}
	if nd.nodeMask.Get(slot) {
		child, err := nd.childFor(slot, m)
		if err != nil {
			return zero, false, err
		}
		prev, removed, err := m.removeAt(child, depth+6, hash, key)
		if err != nil {
			return zero, false, err
		}
		if removed && childIsEmpty(child) {
			dense := nd.memNodeMask.DenseIndex(slot)
			nd.memNodes = removeSlice(nd.memNodes, dense)
			nd.memNodeMask = nd.memNodeMask.Clear(slot)
		}
		return prev, removed, nil
	}
	if nd.memValueMask.Get(slot) {
		dense := nd.memValueMask.DenseIndex(slot)
		kv := nd.memValues[dense]
		if kv.Key != key {
			return zero, false, nil
		}
		nd.memValues = removeSlice(nd.memValues, dense)
		nd.memValueMask = nd.memValueMask.Clear(slot)
		return kv.Value, true, nil
	}
	if nd.valueMask.Get(slot) {
		dense := nd.valueMask.DenseIndex(slot)
		ref := nd.values[dense]
		kv, err := ark.Read(m.reader, ref, m.kvc)
		if err != nil {
			return zero, false, err
		}
		if kv.Key != key {
			return zero, false, nil
		}
		nd.values = removeSlice(nd.values, dense)
		nd.valueMask = nd.valueMask.Clear(slot)
		return kv.Value, true, nil
	}
	return zero, false, nil
}

// Keys returns a lazy in-order enumeration of every key, overlay and disk
// halves merged.
func (m *HashMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		_ = m.walkKeys(m.root, m.rootDiskRef, 0, yield)
	}
}

func (m *HashMap[K, V]) walkKeys(nd *memNode[K, V], ref *codec.Ref[Node[K, V]], depth uint, yield func(K) bool) bool {
	view, err := m.view(nd, ref)
	if err != nil || view == nil {
		return true
	}
	if depth >= 64 {
		for _, kv := range view.memValues {
			if !yield(kv.Key) {
				return false
			}
		}
		for _, r := range view.values {
			kv, err := ark.Read(m.reader, r, m.kvc)
			if err != nil {
				continue
			}
			if !yield(kv.Key) {
				return false
			}
		}
		return true
	}
	for i := uint64(0); i < 64; i++ {
		if view.memValueMask.Get(i) {
			kv := view.memValues[view.memValueMask.DenseIndex(i)]
			if !yield(kv.Key) {
				return false
			}
			continue
		}
		if view.memNodeMask.Get(i) {
			child := view.memNodes[view.memNodeMask.DenseIndex(i)]
			if !m.walkKeys(child, nil, depth+6, yield) {
				return false
			}
			continue
		}
		if view.valueMask.Get(i) {
			r := view.values[view.valueMask.DenseIndex(i)]
			kv, err := ark.Read(m.reader, r, m.kvc)
			if err != nil {
				continue
			}
			if !yield(kv.Key) {
				return false
			}
			continue
		}
		if view.nodeMask.Get(i) {
			r := view.nodes[view.nodeMask.DenseIndex(i)]
			if !m.walkKeys(nil, &r, depth+6, yield) {
				return false
			}
		}
	}
	return true
}

// Commit materializes the overlay as a new on-disk subtree and returns a
// reference to the new root. It returns nil only while the in-memory root
// has never been materialized since Open (no Insert, and no Remove on a map
// with an on-disk root); after that, every call writes a new root, even
// when nothing changed since the previous Commit.
func (m *HashMap[K, V]) Commit(w *ark.Writer) (*codec.Ref[HashRoot[K, V]], error) {
	if m.root == nil {
		return nil, nil
	}
	nodeRef, err := m.commitNode(w, m.root, 0)
	if err != nil {
		return nil, err
	}
	rootRef, err := ark.Append(w, HashRoot[K, V]{Node: nodeRef, Count: m.count}, m.rc)
	if err != nil {
		return nil, err
	}
	return &rootRef, nil
}

// Migrate rewrites m into a fresh HashMap committed to dst: every key is
// read from m's source file and reinserted into a new map, running each
// value through vm first (nil when V owns no codec.Ref fields) so a value
// embedding its own reference is relocated rather than left pointing into
// m's old file.
func (m *HashMap[K, V]) Migrate(dst *ark.Writer, vm ark.Migrator[V]) (*codec.Ref[HashRoot[K, V]], error) {
	fresh, err := Open[K, V](nil, nil, m.kc, m.vc)
	if err != nil {
		return nil, err
	}
	for key := range m.Keys() {
		value, ok, err := m.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		value, err = ark.MigrateValue(value, m.reader, dst, vm)
		if err != nil {
			return nil, err
		}
		if _, _, err := fresh.Insert(key, value); err != nil {
			return nil, err
		}
	}
	return fresh.Commit(dst)
}

func (m *HashMap[K, V]) commitNode(w *ark.Writer, nd *memNode[K, V], depth uint) (codec.Ref[Node[K, V]], error) {
	if depth >= 64 {
		for _, kv := range nd.memValues {
			ref, err := ark.Append(w, kv, m.kvc)
			if err != nil {
				return codec.Ref[Node[K, V]]{}, err
			}
			nd.values = append([]codec.Ref[KeyValue[K, V]]{ref}, nd.values...)
		}
		nd.memValues = nil
		return ark.Append(w, Node[K, V]{Values: nd.values}, m.nc)
	}

	for !nd.memNodeMask.IsEmpty() {
		i := nd.memNodeMask.LastIndex()
		dense := nd.memNodeMask.DenseIndex(i)
		child := nd.memNodes[dense]
		childRef, err := m.commitNode(w, child, depth+6)
		if err != nil {
			return codec.Ref[Node[K, V]]{}, err
		}
		nd.memNodes = removeSlice(nd.memNodes, dense)
		nd.memNodeMask = nd.memNodeMask.Clear(i)
		if nd.valueMask.Get(i) {
			vd := nd.valueMask.DenseIndex(i)
			nd.values = removeSlice(nd.values, vd)
			nd.valueMask = nd.valueMask.Clear(i)
		}
		newDense := nd.nodeMask.DenseIndex(i)
		nd.nodes = insertSlice(nd.nodes, newDense, childRef)
		nd.nodeMask = nd.nodeMask.Set(i)
	}
	for !nd.memValueMask.IsEmpty() {
		i := nd.memValueMask.LastIndex()
		dense := nd.memValueMask.DenseIndex(i)
		kv := nd.memValues[dense]
		ref, err := ark.Append(w, kv, m.kvc)
		if err != nil {
			return codec.Ref[Node[K, V]]{}, err
		}
		nd.memValues = removeSlice(nd.memValues, dense)
		nd.memValueMask = nd.memValueMask.Clear(i)
		newDense := nd.valueMask.DenseIndex(i)
		nd.values = insertSlice(nd.values, newDense, ref)
		nd.valueMask = nd.valueMask.Set(i)
	}
	return ark.Append(w, Node[K, V]{
		ValueMask: nd.valueMask,
		Values:    nd.values,
		NodeMask:  nd.nodeMask,
		Nodes:     nd.nodes,
	}, m.nc)
}
