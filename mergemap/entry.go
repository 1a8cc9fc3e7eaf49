// Package mergemap implements C5: a persistent ordered map backed by a
// log-structured merge of append-only sorted runs, queried with a k-way
// merge over an in-memory overlay and any number of on-disk runs.
package mergemap

import "github.com/arkdb/ark/codec"

// ordered constrains mergemap keys to types with a natural total order.
type ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64 |
		~string
}

// Entry is one on-disk record: a key and an optional value. A nil value is
// a tombstone, shadowing the same key in any older run.
type Entry[K ordered, V any] struct {
	Key   K
	Value *V
}

type entryCodec[K ordered, V any] struct {
	kc codec.Codec[K]
	vc codec.Codec[V]
}

func (c entryCodec[K, V]) Encode(buf []byte, e Entry[K, V], cfg codec.Config) []byte {
	buf = c.kc.Encode(buf, e.Key, cfg)
	return codec.EncodeOption(buf, e.Value, cfg, c.vc.Encode)
}

func (c entryCodec[K, V]) Decode(b []byte, cfg codec.Config) (Entry[K, V], []byte, error) {
	var e Entry[K, V]
	k, rest, err := c.kc.Decode(b, cfg)
	if err != nil {
		return e, nil, err
	}
	v, rest, err := codec.DecodeOption(rest, cfg, c.vc.Decode)
	if err != nil {
		return e, nil, err
	}
	e.Key, e.Value = k, v
	return e, rest, nil
}

// EntryCodec builds the Codec for one mergemap entry.
func EntryCodec[K ordered, V any](kc codec.Codec[K], vc codec.Codec[V]) codec.Codec[Entry[K, V]] {
	return entryCodec[K, V]{kc: kc, vc: vc}
}
