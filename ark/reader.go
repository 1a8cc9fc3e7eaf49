package ark

import (
	"bytes"

	"github.com/arkdb/ark/codec"
)

// Reader decodes values out of an in-memory (typically memory-mapped) ark
// file image. It never seeks or writes; all operations are pure functions
// of the byte slice and a starting offset.
type Reader struct {
	data []byte
	cfg  codec.Config
}

// NewReader wraps data, decoding the 4-byte Config header if present. An
// empty slice yields a reader with the default Config that returns nothing
// from every lookup, matching "opening a nonexistent file is not an error."
func NewReader(data []byte) (*Reader, error) {
	if len(data) == 0 {
		return &Reader{cfg: codec.DefaultConfig()}, nil
	}
	cfg, err := codec.DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	return &Reader{data: data, cfg: cfg}, nil
}

// Config returns the file's recovered encode/decode policy.
func (r *Reader) Config() codec.Config { return r.cfg }

// Len reports the number of bytes in the underlying image.
func (r *Reader) Len() int { return len(r.data) }

// Read decodes a T at ref's offset using c. Offsets must not exceed the
// file length; the remainder of the decode is validated by c itself.
func Read[T any](r *Reader, ref codec.Ref[T], c codec.Codec[T]) (T, error) {
	var zero T
	if ref.Offset > uint64(len(r.data)) {
		return zero, codec.NewError(codec.KindInvalidOffset, "ref beyond file length")
	}
	v, _, err := c.Decode(r.data[ref.Offset:], r.cfg)
	if err != nil {
		return zero, err
	}
	return v, nil
}

// MarkerIter lazily yields values located by reverse-scanning for a marker
// tag, newest first. Each step re-validates the record's CRC32 trailer and
// skips past a corrupt or truncated one to the next older occurrence, so a
// crash mid-append never hides durable records written before it.
type MarkerIter[T any] struct {
	r      *Reader
	marker []byte
	codec  codec.Codec[T]
	limit  int
	done   bool
}

// Find returns a MarkerIter over records stamped with marker, newest first.
func Find[T any](r *Reader, marker []byte, c codec.Codec[T]) *MarkerIter[T] {
	return &MarkerIter[T]{r: r, marker: marker, codec: c, limit: len(r.data)}
}

// Next returns the next older intact record for this marker, or ok=false
// once no further occurrence of the marker remains.
func (it *MarkerIter[T]) Next() (value T, ok bool) {
	var zero T
	if it.done || it.limit <= 0 {
		return zero, false
	}
	// A malformed or checksum-failing trailer is treated as a stale or
	// truncated tail: the scan skips past it and keeps searching for an
	// older, intact occurrence of the marker rather than giving up, so a
	// crash mid-append never hides durable records written before it.
	data := it.r.data
	for it.limit > 0 {
		idx := bytes.LastIndex(data[:it.limit], it.marker)
		if idx < 0 {
			it.done = true
			return zero, false
		}
		it.limit = idx
		after := idx + len(it.marker)
		size, rest, err := codec.DecodeUint64(data[after:], 64, it.r.cfg)
		if err != nil {
			continue
		}
		checksum, _, err := codec.DecodeUint64(rest, 32, it.r.cfg)
		if err != nil {
			continue
		}
		if uint64(idx) < size {
			continue
		}
		recStart := uint64(idx) - size
		record := data[recStart:idx]
		if codec.Checksum(record) != uint32(checksum) {
			continue
		}
		v, _, err := it.codec.Decode(record, it.r.cfg)
		if err != nil {
			continue
		}
		return v, true
	}
	it.done = true
	return zero, false
}
