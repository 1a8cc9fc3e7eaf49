package hashmap

import "hash/fnv"

// keyHasher computes a stable 64-bit FNV-1a hash of a key's encoded bytes.
// The hash is unseeded, so the same key always lands in the same slot
// across get/insert/remove/commit, across HashMaps, and across processes
// that reopen the same file.
type keyHasher struct{}

func newKeyHasher() keyHasher {
	return keyHasher{}
}

func (keyHasher) hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
