// Package ark implements the storage substrate shared by the HAMT, LSM,
// and trigram containers: the self-describing binary file format, a
// memory-mapped Reader, an append-only Writer, and a migration driver.
package ark

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/arkdb/ark/codec"
)

// MappedFile is a read-only memory mapping of an ark file. It exposes a
// byte slice of exactly the logical file length; a missing or empty file
// yields a zero-length mapping rather than an error, matching the
// substrate's "open a nonexistent file is not an error" contract.
type MappedFile struct {
	file *os.File
	data []byte
}

// OpenMappedFile maps path read-only. A nonexistent file yields an empty,
// valid MappedFile.
func OpenMappedFile(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &MappedFile{}, nil
	}
	if err != nil {
		return nil, codec.WrapError(codec.KindIO, "open", err)
	}
	mf := &MappedFile{file: f}
	if err := mf.mapAll(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return mf, nil
}

func (m *MappedFile) mapAll() error {
	info, err := m.file.Stat()
	if err != nil {
		return codec.WrapError(codec.KindIO, "stat", err)
	}
	size := info.Size()
	if size == 0 {
		m.data = nil
		return nil
	}
	mapped, err := unix.Mmap(int(m.file.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return codec.WrapError(codec.KindIO, "mmap", err)
	}
	m.data = mapped[:size:size]
	return nil
}

// Bytes returns the mapped region. The slice is invalidated by the next
// call to Resize or Close.
func (m *MappedFile) Bytes() []byte { return m.data }

// Len reports the logical file length currently mapped.
func (m *MappedFile) Len() int { return len(m.data) }

// Resize re-maps the file to its current on-disk length. New appends made
// by a Writer over the same path become visible to a Reader only after
// Resize is called; the library never re-maps implicitly.
func (m *MappedFile) Resize() error {
	if err := m.unmap(); err != nil {
		return err
	}
	if m.file == nil {
		return nil
	}
	return m.mapAll()
}

func (m *MappedFile) unmap() error {
	if m.data == nil {
		return nil
	}
	if err := unix.Munmap(m.data); err != nil {
		return codec.WrapError(codec.KindIO, "munmap", err)
	}
	m.data = nil
	return nil
}

// Close unmaps the file and releases the underlying descriptor.
func (m *MappedFile) Close() error {
	if err := m.unmap(); err != nil {
		return err
	}
	if m.file == nil {
		return nil
	}
	return m.file.Close()
}
