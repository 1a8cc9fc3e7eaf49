package mergemap

import "github.com/arkdb/ark/codec"

// Run is one append-only sorted run: every Entry in ascending key order,
// written once and never mutated in place.
type Run[K ordered, V any] struct {
	Entries []Entry[K, V]
}

type runCodec[K ordered, V any] struct {
	ec codec.Codec[Entry[K, V]]
}

func (c runCodec[K, V]) Encode(buf []byte, r Run[K, V], cfg codec.Config) []byte {
	return codec.EncodeSeq(buf, r.Entries, cfg, c.ec.Encode)
}

func (c runCodec[K, V]) Decode(b []byte, cfg codec.Config) (Run[K, V], []byte, error) {
	var r Run[K, V]
	entries, rest, err := codec.DecodeSeq(b, cfg, c.ec.Decode)
	if err != nil {
		return r, nil, err
	}
	r.Entries = entries
	return r, rest, nil
}

// RunCodec builds the Codec for a Run record.
func RunCodec[K ordered, V any](ec codec.Codec[Entry[K, V]]) codec.Codec[Run[K, V]] {
	return runCodec[K, V]{ec: ec}
}

// Root is the record written last on commit: the ordered list of run
// references, oldest first, plus the live key count.
type Root[K ordered, V any] struct {
	Runs  []codec.Ref[Run[K, V]]
	Count uint64
}

type rootCodec[K ordered, V any] struct{}

func (rootCodec[K, V]) Encode(buf []byte, r Root[K, V], cfg codec.Config) []byte {
	buf = codec.EncodeSeq(buf, r.Runs, cfg, codec.RefCodec[Run[K, V]]().Encode)
	return codec.EncodeUint64(buf, r.Count, 64, cfg)
}

func (rootCodec[K, V]) Decode(b []byte, cfg codec.Config) (Root[K, V], []byte, error) {
	var r Root[K, V]
	runs, rest, err := codec.DecodeSeq(b, cfg, codec.RefCodec[Run[K, V]]().Decode)
	if err != nil {
		return r, nil, err
	}
	count, rest, err := codec.DecodeUint64(rest, 64, cfg)
	if err != nil {
		return r, nil, err
	}
	r.Runs = runs
	r.Count = count
	return r, rest, nil
}

// RootCodec builds the Codec for a Root record.
func RootCodec[K ordered, V any]() codec.Codec[Root[K, V]] {
	return rootCodec[K, V]{}
}
