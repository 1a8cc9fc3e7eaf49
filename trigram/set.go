package trigram

import (
	"github.com/arkdb/ark"
	"github.com/arkdb/ark/codec"
	"github.com/arkdb/ark/mergemap"
)

type present struct{}

type presentCodec struct{}

func (presentCodec) Encode(buf []byte, _ present, _ codec.Config) []byte { return buf }
func (presentCodec) Decode(b []byte, _ codec.Config) (present, []byte, error) {
	return present{}, b, nil
}

// TrigramSet is a TrigramMap[K, struct{}] wearing a set-shaped API.
type TrigramSet[K comparable] struct {
	m *TrigramMap[K, present]
}

// OpenSet constructs a TrigramSet over reader.
func OpenSet[K comparable](reader *ark.Reader, rootRef *codec.Ref[mergemap.Root[string, []Posting[K, present]]], kc codec.Codec[K], extract Extractor[K], less func(a, b K) bool) (*TrigramSet[K], error) {
	m, err := Open[K, present](reader, rootRef, kc, presentCodec{}, extract, less)
	if err != nil {
		return nil, err
	}
	return &TrigramSet[K]{m: m}, nil
}

func (s *TrigramSet[K]) Contains(key K) bool { return s.m.ContainsKey(key) }

func (s *TrigramSet[K]) Insert(key K) { s.m.Insert(key, present{}) }

func (s *TrigramSet[K]) Remove(key K) bool { return s.m.Remove(key) }

func (s *TrigramSet[K]) Query(key K) []QueryResult[K] { return s.m.Query(key) }

func (s *TrigramSet[K]) Commit(w *ark.Writer) (*codec.Ref[mergemap.Root[string, []Posting[K, present]]], error) {
	return s.m.Commit(w)
}
