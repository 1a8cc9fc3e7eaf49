package trigram

import "github.com/arkdb/ark/codec"

// Posting is one entry in a trigram's postings list: the original indexed
// key and its value.
type Posting[K any, V any] struct {
	Key   K
	Value V
}

type postingCodec[K, V any] struct {
	kc codec.Codec[K]
	vc codec.Codec[V]
}

func (c postingCodec[K, V]) Encode(buf []byte, p Posting[K, V], cfg codec.Config) []byte {
	buf = c.kc.Encode(buf, p.Key, cfg)
	return c.vc.Encode(buf, p.Value, cfg)
}

func (c postingCodec[K, V]) Decode(b []byte, cfg codec.Config) (Posting[K, V], []byte, error) {
	var p Posting[K, V]
	k, rest, err := c.kc.Decode(b, cfg)
	if err != nil {
		return p, nil, err
	}
	v, rest, err := c.vc.Decode(rest, cfg)
	if err != nil {
		return p, nil, err
	}
	p.Key, p.Value = k, v
	return p, rest, nil
}

// PostingCodec builds the Codec for a single posting.
func PostingCodec[K, V any](kc codec.Codec[K], vc codec.Codec[V]) codec.Codec[Posting[K, V]] {
	return postingCodec[K, V]{kc: kc, vc: vc}
}

type postingsCodec[K, V any] struct {
	pc codec.Codec[Posting[K, V]]
}

func (c postingsCodec[K, V]) Encode(buf []byte, ps []Posting[K, V], cfg codec.Config) []byte {
	return codec.EncodeSeq(buf, ps, cfg, c.pc.Encode)
}

func (c postingsCodec[K, V]) Decode(b []byte, cfg codec.Config) ([]Posting[K, V], []byte, error) {
	return codec.DecodeSeq(b, cfg, c.pc.Decode)
}

// PostingsCodec builds the Codec for a trigram's postings list, the value
// type stored for each trigram key in the underlying mergemap.
func PostingsCodec[K, V any](pc codec.Codec[Posting[K, V]]) codec.Codec[[]Posting[K, V]] {
	return postingsCodec[K, V]{pc: pc}
}
