package ark

import (
	"os"

	"github.com/natefinch/atomic"

	"github.com/arkdb/ark/codec"
)

// Writer owns a seekable, append-only file. There is at most one Writer per
// file at a time; the library performs no internal locking.
type Writer struct {
	file   *os.File
	cfg    codec.Config
	offset uint64
}

// Tempfile creates a new temporary file, writes the 4-byte Config header,
// and adopts cfg for all subsequent appends. Persist must be called to
// give the file a permanent name.
func Tempfile(cfg codec.Config) (*Writer, error) {
	f, err := os.CreateTemp("", "ark-*.tmp")
	if err != nil {
		return nil, codec.WrapError(codec.KindIO, "create tempfile", err)
	}
	hdr := codec.EncodeHeader(cfg)
	if _, err := f.Write(hdr[:]); err != nil {
		_ = f.Close()
		return nil, codec.WrapError(codec.KindIO, "write header", err)
	}
	return &Writer{file: f, cfg: cfg, offset: uint64(len(hdr))}, nil
}

// Open opens an existing file for append, recovering its Config from the
// header. A nonexistent path is not an error: Open falls back to a fresh
// tempfile-shaped writer at that path's eventual Persist target is left to
// the caller; callers that want "open or create" should check os.IsNotExist
// on the returned error and call Tempfile instead.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, codec.WrapError(codec.KindIO, "open", err)
	}
	hdr := make([]byte, 4)
	if _, err := f.ReadAt(hdr, 0); err != nil {
		_ = f.Close()
		return nil, codec.WrapError(codec.KindIO, "read header", err)
	}
	cfg, err := codec.DecodeHeader(hdr)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, codec.WrapError(codec.KindIO, "stat", err)
	}
	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		_ = f.Close()
		return nil, codec.WrapError(codec.KindIO, "seek", err)
	}
	return &Writer{file: f, cfg: cfg, offset: uint64(info.Size())}, nil
}

// Config reports the writer's fixed encode policy.
func (w *Writer) Config() codec.Config { return w.cfg }

// Offset reports the writer's current append position, equal to the
// offset the next Append call will return.
func (w *Writer) Offset() uint64 { return w.offset }

// Append encodes v with c into a scratch buffer and appends it to the file,
// returning a reference valid for any reader of the same file.
func Append[T any](w *Writer, v T, c codec.Codec[T]) (codec.Ref[T], error) {
	ref := codec.Ref[T]{Offset: w.offset}
	buf := c.Encode(nil, v, w.cfg)
	if err := w.writeRaw(buf); err != nil {
		return codec.Ref[T]{}, err
	}
	return ref, nil
}

// AppendWithMarker appends v like Append, then appends a marker trailer
// (marker || size || crc32) so a later reverse scan can find this record.
// The returned reference points at the record body, not the trailer.
func AppendWithMarker[T any](w *Writer, marker []byte, v T, c codec.Codec[T]) (codec.Ref[T], error) {
	ref := codec.Ref[T]{Offset: w.offset}
	buf := c.Encode(nil, v, w.cfg)
	if err := w.writeRaw(buf); err != nil {
		return codec.Ref[T]{}, err
	}
	if err := w.appendTrailer(marker, len(buf)); err != nil {
		return codec.Ref[T]{}, err
	}
	return ref, nil
}

func (w *Writer) appendTrailer(marker []byte, size int) error {
	trailer := append([]byte{}, marker...)
	trailer = codec.EncodeUint64(trailer, uint64(size), 64, w.cfg)
	trailer = codec.EncodeUint64(trailer, uint64(codec.Checksum(w.lastWritten(size))), 32, w.cfg)
	return w.writeRaw(trailer)
}

// lastWritten re-reads the size bytes just appended, for checksum purposes,
// avoiding a second in-memory copy kept around between Append and the
// trailer write.
func (w *Writer) lastWritten(size int) []byte {
	buf := make([]byte, size)
	if _, err := w.file.ReadAt(buf, int64(w.offset-uint64(size))); err != nil {
		return nil
	}
	return buf
}

func (w *Writer) writeRaw(b []byte) error {
	n, err := w.file.Write(b)
	w.offset += uint64(n)
	if err != nil {
		return codec.WrapError(codec.KindIO, "write", err)
	}
	return nil
}

// MigrateWithMarker re-encodes v (migrated through src/dst by the caller)
// and stamps it with a marker trailer in one call, the combination the
// migration driver uses to relocate a root and its marker together.
func MigrateWithMarker[T any](w *Writer, marker []byte, v T, c codec.Codec[T]) (codec.Ref[T], error) {
	return AppendWithMarker(w, marker, v, c)
}

// Flush propagates buffered writes to the OS. ark does not fsync; callers
// that need durability stronger than OS page-cache visibility must do so
// themselves.
func (w *Writer) Flush() error {
	if err := w.file.Sync(); err != nil {
		return codec.WrapError(codec.KindIO, "flush", err)
	}
	return nil
}

// Persist atomically renames the writer's underlying file to path. It is
// the tempfile -> final-path step of the migration and container commit
// lifecycle.
func (w *Writer) Persist(path string) error {
	name := w.file.Name()
	if err := w.file.Close(); err != nil {
		return codec.WrapError(codec.KindIO, "close before persist", err)
	}
	if err := atomic.ReplaceFile(name, path); err != nil {
		return codec.WrapError(codec.KindIO, "persist", err)
	}
	return nil
}

// Close releases the underlying file descriptor without persisting.
func (w *Writer) Close() error {
	return w.file.Close()
}
