package ark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkdb/ark/codec"
)

func setupWriterTest(t *testing.T) (w *Writer, path string, cleanup func()) {
	w, err := Tempfile(codec.DefaultConfig())
	require.NoError(t, err, "failed to create tempfile writer")
	path = filepath.Join(t.TempDir(), "test.ark")
	return w, path, func() {
		_ = os.Remove(path)
	}
}

func TestAppendAndRead(t *testing.T) {
	w, path, cleanup := setupWriterTest(t)
	defer cleanup()

	ref, err := Append(w, "hello world", codec.StringCodec())
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Persist(path), "persist")

	mf, err := OpenMappedFile(path)
	require.NoError(t, err)
	defer mf.Close()

	r, err := NewReader(mf.Bytes())
	require.NoError(t, err)
	got, err := Read(r, ref, codec.StringCodec())
	require.NoError(t, err)
	require.Equal(t, "hello world", got)
}

// TestMarkerReverseScanSurvivesCorruption is scenario S5: write
// two marker-trailed records, corrupt the last trailer's tail bytes, and
// confirm the reverse scan returns the prior intact record.
func TestMarkerReverseScanSurvivesCorruption(t *testing.T) {
	w, path, cleanup := setupWriterTest(t)
	defer cleanup()

	marker := []byte("msg")
	_, err := AppendWithMarker(w, marker, "first", codec.StringCodec())
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	_, err = AppendWithMarker(w, marker, "second", codec.StringCodec())
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Persist(path))

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	info, err := f.Stat()
	require.NoError(t, err)
	size := info.Size()
	zeros := make([]byte, 4)
	_, err = f.WriteAt(zeros, size-4)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	mf, err := OpenMappedFile(path)
	require.NoError(t, err)
	defer mf.Close()
	r, err := NewReader(mf.Bytes())
	require.NoError(t, err)
	it := Find(r, marker, codec.StringCodec())
	v, ok := it.Next()
	require.True(t, ok, "expected prior intact record")
	require.Equal(t, "first", v)
	_, ok = it.Next()
	require.False(t, ok, "expected scan to be exhausted after the only intact record")
}

func TestMarkerReverseScanNewestFirst(t *testing.T) {
	w, path, cleanup := setupWriterTest(t)
	defer cleanup()

	marker := []byte("map")
	for _, v := range []string{"v1", "v2", "v3"} {
		_, err := AppendWithMarker(w, marker, v, codec.StringCodec())
		require.NoError(t, err)
	}
	require.NoError(t, w.Flush())
	require.NoError(t, w.Persist(path))

	mf, err := OpenMappedFile(path)
	require.NoError(t, err)
	defer mf.Close()
	r, err := NewReader(mf.Bytes())
	require.NoError(t, err)

	it := Find(r, marker, codec.StringCodec())
	var got []string
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, []string{"v3", "v2", "v1"}, got)
}

func TestOpenNonexistentFileIsEmpty(t *testing.T) {
	mf, err := OpenMappedFile(filepath.Join(t.TempDir(), "missing.ark"))
	require.NoError(t, err)
	defer mf.Close()
	require.Equal(t, 0, mf.Len(), "expected empty mapping")
	r, err := NewReader(mf.Bytes())
	require.NoError(t, err)
	it := Find(r, []byte("map"), codec.StringCodec())
	_, ok := it.Next()
	require.False(t, ok, "expected no results from an empty file")
}
