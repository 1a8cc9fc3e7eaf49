package mergemap

import (
	"iter"

	"github.com/arkdb/ark"
	"github.com/arkdb/ark/codec"
)

type present struct{}

type presentCodec struct{}

func (presentCodec) Encode(buf []byte, _ present, _ codec.Config) []byte { return buf }
func (presentCodec) Decode(b []byte, _ codec.Config) (present, []byte, error) {
	return present{}, b, nil
}

// MergeSet is a MergeMap[K, struct{}] wearing a set-shaped API.
type MergeSet[K ordered] struct {
	m *MergeMap[K, present]
}

// OpenSet constructs a MergeSet over reader.
func OpenSet[K ordered](reader *ark.Reader, rootRef *codec.Ref[Root[K, present]], kc codec.Codec[K]) (*MergeSet[K], error) {
	m, err := Open[K, present](reader, rootRef, kc, presentCodec{})
	if err != nil {
		return nil, err
	}
	return &MergeSet[K]{m: m}, nil
}

func (s *MergeSet[K]) Len() uint64   { return s.m.Len() }
func (s *MergeSet[K]) IsEmpty() bool { return s.m.IsEmpty() }

func (s *MergeSet[K]) Contains(key K) bool {
	return s.m.ContainsKey(key)
}

func (s *MergeSet[K]) Insert(key K) bool {
	_, existed := s.m.Insert(key, present{})
	return existed
}

func (s *MergeSet[K]) Remove(key K) bool {
	_, existed := s.m.Remove(key)
	return existed
}

func (s *MergeSet[K]) Keys() iter.Seq[K] { return s.m.Keys() }

func (s *MergeSet[K]) Commit(w *ark.Writer) (*codec.Ref[Root[K, present]], error) {
	return s.m.Commit(w)
}
