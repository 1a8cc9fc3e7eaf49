package hashmap

import (
	"iter"

	"github.com/arkdb/ark"
	"github.com/arkdb/ark/codec"
)

// present is the zero-size value stored for every member of a HashSet.
type present struct{}

type presentCodec struct{}

func (presentCodec) Encode(buf []byte, _ present, _ codec.Config) []byte { return buf }
func (presentCodec) Decode(b []byte, _ codec.Config) (present, []byte, error) {
	return present{}, b, nil
}

// HashSet is a HashMap[K, struct{}] wearing a set-shaped API.
type HashSet[K comparable] struct {
	m *HashMap[K, present]
}

// OpenSet constructs a HashSet over reader.
func OpenSet[K comparable](reader *ark.Reader, rootRef *codec.Ref[HashRoot[K, present]], kc codec.Codec[K]) (*HashSet[K], error) {
	m, err := Open[K, present](reader, rootRef, kc, presentCodec{})
	if err != nil {
		return nil, err
	}
	return &HashSet[K]{m: m}, nil
}

func (s *HashSet[K]) Len() uint64   { return s.m.Len() }
func (s *HashSet[K]) IsEmpty() bool { return s.m.IsEmpty() }

// Contains reports whether key is a member.
func (s *HashSet[K]) Contains(key K) (bool, error) {
	return s.m.ContainsKey(key)
}

// Insert adds key, returning whether it was already present.
func (s *HashSet[K]) Insert(key K) (bool, error) {
	_, existed, err := s.m.Insert(key, present{})
	return existed, err
}

// Remove deletes key, returning whether it was present.
func (s *HashSet[K]) Remove(key K) (bool, error) {
	_, removed, err := s.m.Remove(key)
	return removed, err
}

// Keys enumerates every member.
func (s *HashSet[K]) Keys() iter.Seq[K] { return s.m.Keys() }

// Commit materializes the overlay, returning a reference to the new root.
func (s *HashSet[K]) Commit(w *ark.Writer) (*codec.Ref[HashRoot[K, present]], error) {
	return s.m.Commit(w)
}
