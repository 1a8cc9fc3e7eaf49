package hashmap

import "github.com/arkdb/ark/codec"

// memNode is the in-memory overlay node: the on-disk node's fields plus a
// parallel set of pending (mem-prefixed) value and child slots. A slot is
// present in at most one of the four masks at a time; promoting a disk
// child into the overlay clears its disk bit before the overlay bit is set,
// so the two halves never transiently double-cover a slot.
type memNode[K, V any] struct {
	valueMask mask
	values    []codec.Ref[KeyValue[K, V]]
	nodeMask  mask
	nodes     []codec.Ref[Node[K, V]]

	memValueMask mask
	memValues    []KeyValue[K, V]
	memNodeMask  mask
	memNodes     []*memNode[K, V]
}

func newMemNodeFromDisk[K, V any](n Node[K, V]) *memNode[K, V] {
	return &memNode[K, V]{
		valueMask: n.ValueMask,
		values:    n.Values,
		nodeMask:  n.NodeMask,
		nodes:     n.Nodes,
	}
}

func childIsEmpty[K, V any](nd *memNode[K, V]) bool {
	return nd.nodeMask.IsEmpty() && nd.memNodeMask.IsEmpty() &&
		len(nd.values) == 0 && len(nd.memValues) == 0
}

// childFor returns the overlay child at slot i, promoting a disk child
// into the overlay or creating a fresh empty one as needed. It mutates nd.
func (nd *memNode[K, V]) childFor(i uint64, reader diskNodeReader[K, V]) (*memNode[K, V], error) {
	if nd.memNodeMask.Get(i) {
		return nd.memNodes[nd.memNodeMask.DenseIndex(i)], nil
	}
	if nd.nodeMask.Get(i) {
		dense := nd.nodeMask.DenseIndex(i)
		diskChild, err := reader.readNode(nd.nodes[dense])
		if err != nil {
			return nil, err
		}
		child := newMemNodeFromDisk(diskChild)
		nd.nodes = removeSlice(nd.nodes, dense)
		nd.nodeMask = nd.nodeMask.Clear(i)
		newDense := nd.memNodeMask.DenseIndex(i)
		nd.memNodes = insertSlice(nd.memNodes, newDense, child)
		nd.memNodeMask = nd.memNodeMask.Set(i)
		return child, nil
	}
	child := &memNode[K, V]{}
	dense := nd.memNodeMask.DenseIndex(i)
	nd.memNodes = insertSlice(nd.memNodes, dense, child)
	nd.memNodeMask = nd.memNodeMask.Set(i)
	return child, nil
}

// diskNodeReader is the narrow capability childFor needs: decode a Node at
// a reference. HashMap satisfies it via its ark.Reader and node codec.
type diskNodeReader[K, V any] interface {
	readNode(ref codec.Ref[Node[K, V]]) (Node[K, V], error)
}

func insertSlice[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}

func removeSlice[T any](s []T, i int) []T {
	return append(s[:i], s[i+1:]...)
}
