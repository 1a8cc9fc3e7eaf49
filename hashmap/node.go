package hashmap

import "github.com/arkdb/ark/codec"

// KeyValue is the on-disk record holding one key-value pair.
type KeyValue[K any, V any] struct {
	Key   K
	Value V
}

type kvCodec[K, V any] struct {
	kc codec.Codec[K]
	vc codec.Codec[V]
}

func (c kvCodec[K, V]) Encode(buf []byte, v KeyValue[K, V], cfg codec.Config) []byte {
	buf = c.kc.Encode(buf, v.Key, cfg)
	return c.vc.Encode(buf, v.Value, cfg)
}

func (c kvCodec[K, V]) Decode(b []byte, cfg codec.Config) (KeyValue[K, V], []byte, error) {
	var kv KeyValue[K, V]
	k, rest, err := c.kc.Decode(b, cfg)
	if err != nil {
		return kv, nil, err
	}
	v, rest, err := c.vc.Decode(rest, cfg)
	if err != nil {
		return kv, nil, err
	}
	kv.Key, kv.Value = k, v
	return kv, rest, nil
}

// KeyValueCodec builds the Codec for a hashmap KeyValue record.
func KeyValueCodec[K, V any](kc codec.Codec[K], vc codec.Codec[V]) codec.Codec[KeyValue[K, V]] {
	return kvCodec[K, V]{kc: kc, vc: vc}
}

// Node is the on-disk representation of one trie node: value_mask/values is
// the popcount-compressed array of value slots, node_mask/nodes the
// popcount-compressed array of child slots. At depth >= 64 (a collision
// leaf) the masks are unused and Values is a flat, unindexed list.
type Node[K, V any] struct {
	ValueMask mask
	Values    []codec.Ref[KeyValue[K, V]]
	NodeMask  mask
	Nodes     []codec.Ref[Node[K, V]]
}

// HashRoot is the root record written last on commit: a reference to the
// root trie node plus the total key count.
type HashRoot[K, V any] struct {
	Node  codec.Ref[Node[K, V]]
	Count uint64
}

type nodeCodec[K, V any] struct {
	kvc codec.Codec[KeyValue[K, V]]
}

func (c nodeCodec[K, V]) Encode(buf []byte, n Node[K, V], cfg codec.Config) []byte {
	buf = codec.EncodeUint64(buf, uint64(n.ValueMask), 64, cfg)
	buf = codec.EncodeSeq(buf, n.Values, cfg, codec.RefCodec[KeyValue[K, V]]().Encode)
	buf = codec.EncodeUint64(buf, uint64(n.NodeMask), 64, cfg)
	buf = codec.EncodeSeq(buf, n.Nodes, cfg, codec.RefCodec[Node[K, V]]().Encode)
	return buf
}

func (c nodeCodec[K, V]) Decode(b []byte, cfg codec.Config) (Node[K, V], []byte, error) {
	var n Node[K, V]
	vm, rest, err := codec.DecodeUint64(b, 64, cfg)
	if err != nil {
		return n, nil, err
	}
	values, rest, err := codec.DecodeSeq(rest, cfg, codec.RefCodec[KeyValue[K, V]]().Decode)
	if err != nil {
		return n, nil, err
	}
	nm, rest, err := codec.DecodeUint64(rest, 64, cfg)
	if err != nil {
		return n, nil, err
	}
	nodes, rest, err := codec.DecodeSeq(rest, cfg, codec.RefCodec[Node[K, V]]().Decode)
	if err != nil {
		return n, nil, err
	}
	n.ValueMask = mask(vm)
	n.Values = values
	n.NodeMask = mask(nm)
	n.Nodes = nodes
	return n, rest, nil
}

// NodeCodec builds the Codec for an on-disk trie Node.
func NodeCodec[K, V any](kvc codec.Codec[KeyValue[K, V]]) codec.Codec[Node[K, V]] {
	return nodeCodec[K, V]{kvc: kvc}
}

type rootCodec[K, V any] struct{}

func (rootCodec[K, V]) Encode(buf []byte, r HashRoot[K, V], cfg codec.Config) []byte {
	buf = codec.EncodeRef(buf, r.Node, cfg)
	return codec.EncodeUint64(buf, r.Count, 64, cfg)
}

func (rootCodec[K, V]) Decode(b []byte, cfg codec.Config) (HashRoot[K, V], []byte, error) {
	var r HashRoot[K, V]
	ref, rest, err := codec.DecodeRef[Node[K, V]](b, cfg)
	if err != nil {
		return r, nil, err
	}
	count, rest, err := codec.DecodeUint64(rest, 64, cfg)
	if err != nil {
		return r, nil, err
	}
	r.Node = ref
	r.Count = count
	return r, rest, nil
}

// HashRootCodec builds the Codec for a HashRoot record.
func HashRootCodec[K, V any]() codec.Codec[HashRoot[K, V]] {
	return rootCodec[K, V]{}
}
