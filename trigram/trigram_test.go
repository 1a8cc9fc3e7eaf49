package trigram

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkdb/ark"
	"github.com/arkdb/ark/codec"
)

func setupTrigramTest(t *testing.T) (w *ark.Writer, path string) {
	w, err := ark.Tempfile(codec.DefaultConfig())
	require.NoError(t, err, "failed to create tempfile writer")
	path = filepath.Join(t.TempDir(), "test.ark")
	return w, path
}

func TestStringExtractorWindows(t *testing.T) {
	got := StringExtractor()("band")
	require.Equal(t, []string{"ban", "and"}, got)
	require.Nil(t, StringExtractor()("ab"), "expected nil trigrams for a key shorter than 3 units")
}

// TestTrigramQuery is scenario S6: insert "banana","apple","band","bandana"
// and confirm query("bana") ranks banana and bandana above apple, with
// banana strictly above apple.
func TestTrigramQuery(t *testing.T) {
	w, path := setupTrigramTest(t)

	idx, err := Open[string, int](nil, nil, codec.StringCodec(), intCodec(), StringExtractor(), StringLess)
	require.NoError(t, err)
	for i, k := range []string{"banana", "apple", "band", "bandana"} {
		idx.Insert(k, i)
	}

	results := idx.Query("bana")
	require.NotEmpty(t, results)

	rank := make(map[string]int, len(results))
	for i, r := range results {
		rank[r.Key] = i
	}
	bananaRank, ok1 := rank["banana"]
	appleRank, ok2 := rank["apple"]
	require.True(t, ok1 && ok2, "expected both banana and apple present in results: %+v", results)
	require.Less(t, bananaRank, appleRank, "expected banana ranked strictly above apple")

	got, ok := idx.Get("banana")
	require.True(t, ok)
	require.Equal(t, 0, got)

	rootRef, err := idx.Commit(w)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Persist(path))

	mf, err := ark.OpenMappedFile(path)
	require.NoError(t, err)
	defer mf.Close()
	r, err := ark.NewReader(mf.Bytes())
	require.NoError(t, err)
	reopened, err := Open[string, int](r, rootRef, codec.StringCodec(), intCodec(), StringExtractor(), StringLess)
	require.NoError(t, err)

	_, ok = reopened.Get("missing")
	require.False(t, ok, "expected missing key absent after reopen")
	got, ok = reopened.Get("band")
	require.True(t, ok)
	require.Equal(t, 2, got, "expected band to survive reopen")
}

// TestTrigramRemove confirms removal drops a key from future lookups and
// queries without disturbing postings for other keys sharing a trigram.
func TestTrigramRemove(t *testing.T) {
	idx, err := Open[string, int](nil, nil, codec.StringCodec(), intCodec(), StringExtractor(), StringLess)
	require.NoError(t, err)
	idx.Insert("banana", 1)
	idx.Insert("band", 2)

	require.True(t, idx.Remove("banana"), "expected banana to be found and removed")
	_, ok := idx.Get("banana")
	require.False(t, ok, "expected banana absent after removal")

	got, ok := idx.Get("band")
	require.True(t, ok)
	require.Equal(t, 2, got, "expected band unaffected by banana's removal")

	require.False(t, idx.Remove("banana"), "expected second removal to report not found")
}

// TestTrigramMigrateRewritesOwnedRefValues covers a TrigramMap whose value
// type is itself a codec.Ref: Migrate must route each posting's value
// through the supplied Migrator so it resolves against the destination
// file, not the source file the index was opened from.
func TestTrigramMigrateRewritesOwnedRefValues(t *testing.T) {
	w, path := setupTrigramTest(t)

	idx, err := Open[string, codec.Ref[string]](nil, nil, codec.StringCodec(), codec.RefCodec[string](), StringExtractor(), StringLess)
	require.NoError(t, err)
	blobRef, err := ark.Append(w, "payload", codec.StringCodec())
	require.NoError(t, err)
	idx.Insert("banana", blobRef)

	rootRef, err := idx.Commit(w)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Persist(path))

	mf, err := ark.OpenMappedFile(path)
	require.NoError(t, err)
	defer mf.Close()
	r, err := ark.NewReader(mf.Bytes())
	require.NoError(t, err)
	src, err := Open[string, codec.Ref[string]](r, rootRef, codec.StringCodec(), codec.RefCodec[string](), StringExtractor(), StringLess)
	require.NoError(t, err)

	dstW, err := ark.Tempfile(codec.DefaultConfig())
	require.NoError(t, err)
	dstPath := filepath.Join(t.TempDir(), "migrated-refs.ark")
	vm := ark.MigratorFunc[codec.Ref[string]](func(v codec.Ref[string], src *ark.Reader, dst *ark.Writer) (codec.Ref[string], error) {
		return ark.MigrateRef(v, src, dst, codec.StringCodec(), nil)
	})
	newRootRef, err := src.Migrate(dstW, vm)
	require.NoError(t, err)
	require.NoError(t, dstW.Flush())
	require.NoError(t, dstW.Persist(dstPath))

	dmf, err := ark.OpenMappedFile(dstPath)
	require.NoError(t, err)
	defer dmf.Close()
	dr, err := ark.NewReader(dmf.Bytes())
	require.NoError(t, err)
	migrated, err := Open[string, codec.Ref[string]](dr, newRootRef, codec.StringCodec(), codec.RefCodec[string](), StringExtractor(), StringLess)
	require.NoError(t, err)

	gotRef, ok := migrated.Get("banana")
	require.True(t, ok)
	payload, err := ark.Read(dr, gotRef, codec.StringCodec())
	require.NoError(t, err)
	require.Equal(t, "payload", payload)
}

func TestTrigramSetRoundTrip(t *testing.T) {
	w, path := setupTrigramTest(t)

	s, err := OpenSet[string](nil, nil, codec.StringCodec(), StringExtractor(), StringLess)
	require.NoError(t, err)
	s.Insert("banana")
	s.Insert("bandana")
	require.True(t, s.Contains("banana"))

	rootRef, err := s.Commit(w)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Persist(path))

	mf, err := ark.OpenMappedFile(path)
	require.NoError(t, err)
	defer mf.Close()
	r, err := ark.NewReader(mf.Bytes())
	require.NoError(t, err)
	reopened, err := OpenSet[string](r, rootRef, codec.StringCodec(), StringExtractor(), StringLess)
	require.NoError(t, err)
	require.True(t, reopened.Contains("bandana"), "expected bandana present after reopen")

	results := reopened.Query("bana")
	require.NotEmpty(t, results, "expected query results after reopen")
}

func intCodec() codec.Codec[int] {
	return intC{}
}

type intC struct{}

func (intC) Encode(buf []byte, v int, cfg codec.Config) []byte {
	return codec.EncodeInt64(buf, int64(v), 64, cfg)
}

func (intC) Decode(b []byte, cfg codec.Config) (int, []byte, error) {
	v, rest, err := codec.DecodeInt64(b, 64, cfg)
	return int(v), rest, err
}
