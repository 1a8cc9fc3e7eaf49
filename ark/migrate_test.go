package ark

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkdb/ark/codec"
)

// a tiny self-contained container standing in for hashmap/mergemap/trigram,
// whose real migration path is "Open the old root, walk every key, Insert
// it into a fresh container over the new writer, Commit." This test drives
// that shape directly against Reader/Writer, without importing a sibling
// package (which would make ark depend on its own dependents).
type kv struct {
	Key   string
	Value int64
}

func kvCodec() codec.Codec[kv] {
	return kvC{}
}

type kvC struct{}

func (kvC) Encode(buf []byte, v kv, cfg codec.Config) []byte {
	buf = codec.EncodeString(buf, v.Key, cfg)
	return codec.EncodeInt64(buf, v.Value, 64, cfg)
}

func (kvC) Decode(b []byte, cfg codec.Config) (kv, []byte, error) {
	var v kv
	key, rest, err := codec.DecodeString(b, cfg)
	if err != nil {
		return v, nil, err
	}
	val, rest, err := codec.DecodeInt64(rest, 64, cfg)
	if err != nil {
		return v, nil, err
	}
	v.Key, v.Value = key, val
	return v, rest, nil
}

const rootMarker = "root"

// TestMigrateToRewritesIntoNewFile builds a tiny marker-addressed record
// set, migrates it with MigrateTo into a separate destination path, and
// confirms every record survives the rewrite with the newest marker found
// first.
func TestMigrateToRewritesIntoNewFile(t *testing.T) {
	w, err := Tempfile(codec.DefaultConfig())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "src.ark")

	records := []kv{{"a", 1}, {"b", 2}, {"c", 3}}
	for _, r := range records {
		_, err := AppendWithMarker(w, []byte(rootMarker), r, kvCodec())
		require.NoError(t, err)
	}
	require.NoError(t, w.Flush())
	require.NoError(t, w.Persist(path))

	dstPath := filepath.Join(t.TempDir(), "dst.ark")
	var migrated []kv
	strategy := func(src *Reader, dst *Writer) error {
		it := Find(src, []byte(rootMarker), kvCodec())
		var found []kv
		for {
			v, ok := it.Next()
			if !ok {
				break
			}
			found = append(found, v)
		}
		// reverse scan yields newest first; re-append oldest first so the
		// migrated file's marker order matches the source.
		for i := len(found) - 1; i >= 0; i-- {
			if _, err := MigrateWithMarker(dst, []byte(rootMarker), found[i], kvCodec()); err != nil {
				return err
			}
		}
		migrated = found
		return nil
	}

	require.NoError(t, MigrateTo(path, dstPath, strategy))
	require.Len(t, migrated, len(records))

	mf, err := OpenMappedFile(dstPath)
	require.NoError(t, err)
	defer mf.Close()
	r, err := NewReader(mf.Bytes())
	require.NoError(t, err)

	it := Find(r, []byte(rootMarker), kvCodec())
	var got []kv
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Len(t, got, len(records))
	require.Equal(t, kv{"c", 3}, got[0], "expected newest record first on reverse scan")
	require.Equal(t, kv{"a", 1}, got[len(got)-1])
}

// TestMigrateInPlaceReplacesSourcePath is Migrate (not MigrateTo): the
// strategy's destination atomically replaces the same path it read from.
func TestMigrateInPlaceReplacesSourcePath(t *testing.T) {
	w, err := Tempfile(codec.DefaultConfig())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "inplace.ark")

	ref, err := AppendWithMarker(w, []byte(rootMarker), kv{"x", 42}, kvCodec())
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Persist(path))

	strategy := func(src *Reader, dst *Writer) error {
		v, err := Read(src, ref, kvCodec())
		if err != nil {
			return err
		}
		_, err = AppendWithMarker(dst, []byte(rootMarker), v, kvCodec())
		return err
	}
	require.NoError(t, Migrate(path, strategy))

	mf, err := OpenMappedFile(path)
	require.NoError(t, err)
	defer mf.Close()
	r, err := NewReader(mf.Bytes())
	require.NoError(t, err)
	it := Find(r, []byte(rootMarker), kvCodec())
	v, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, kv{"x", 42}, v)
}

// blobRef is a value type that owns a codec.Ref into a separately-appended
// blob, the shape that goes stale if a container migrates it via plain
// Get-then-reinsert without routing it through a Migrator.
type blobRef struct {
	Note string
	Data codec.Ref[string]
}

func blobRefCodec() codec.Codec[blobRef] { return blobRefC{} }

type blobRefC struct{}

func (blobRefC) Encode(buf []byte, v blobRef, cfg codec.Config) []byte {
	buf = codec.EncodeString(buf, v.Note, cfg)
	return codec.RefCodec[string]().Encode(buf, v.Data, cfg)
}

func (blobRefC) Decode(b []byte, cfg codec.Config) (blobRef, []byte, error) {
	var v blobRef
	note, rest, err := codec.DecodeString(b, cfg)
	if err != nil {
		return v, nil, err
	}
	ref, rest, err := codec.RefCodec[string]().Decode(rest, cfg)
	if err != nil {
		return v, nil, err
	}
	v.Note, v.Data = note, ref
	return v, rest, nil
}

// blobRefMigrator implements Migrator[blobRef]: it owns one Ref<string>
// field, Data, and rewrites it via MigrateRef exactly the way Ref<T>'s own
// migrate does, the shape any V embedding a Ref supplies.
type blobRefMigrator struct{}

func (blobRefMigrator) Migrate(v blobRef, src *Reader, dst *Writer) (blobRef, error) {
	ref, err := MigrateRef(v.Data, src, dst, codec.StringCodec(), nil)
	if err != nil {
		return blobRef{}, err
	}
	v.Data = ref
	return v, nil
}

// TestMigrateRewritesOwnedRefFields confirms a value holding its own
// codec.Ref field resolves correctly in the destination file after
// migration, rather than keeping a stale offset into the source file.
func TestMigrateRewritesOwnedRefFields(t *testing.T) {
	w, err := Tempfile(codec.DefaultConfig())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "refs.ark")

	blobRefVal, err := Append(w, "payload bytes", codec.StringCodec())
	require.NoError(t, err)
	root := blobRef{Note: "n", Data: blobRefVal}
	_, err = AppendWithMarker(w, []byte(rootMarker), root, blobRefCodec())
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Persist(path))

	dstPath := filepath.Join(t.TempDir(), "refs-dst.ark")
	strategy := func(src *Reader, dst *Writer) error {
		it := Find(src, []byte(rootMarker), blobRefCodec())
		v, ok := it.Next()
		require.True(t, ok)
		migrated, err := (blobRefMigrator{}).Migrate(v, src, dst)
		if err != nil {
			return err
		}
		_, err = MigrateWithMarker(dst, []byte(rootMarker), migrated, blobRefCodec())
		return err
	}
	require.NoError(t, MigrateTo(path, dstPath, strategy))

	mf, err := OpenMappedFile(dstPath)
	require.NoError(t, err)
	defer mf.Close()
	r, err := NewReader(mf.Bytes())
	require.NoError(t, err)

	it := Find(r, []byte(rootMarker), blobRefCodec())
	got, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, "n", got.Note)

	payload, err := Read(r, got.Data, codec.StringCodec())
	require.NoError(t, err)
	require.Equal(t, "payload bytes", payload)
}
