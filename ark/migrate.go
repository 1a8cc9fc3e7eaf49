package ark

import "github.com/arkdb/ark/codec"

// MigrationStrategy walks a reachable record graph from src (typically
// starting at the latest marker of some root type), rewriting it into dst
// via Append/AppendWithMarker, and returns any failure encountered.
// Implementations usually locate the current root with Find, then call a
// container's Migrate entry point to deep-copy its structure.
type MigrationStrategy func(src *Reader, dst *Writer) error

// Migrator is a value type's migrate capability, paired with its
// codec.Codec the way a Field's migrate method is paired with its
// from_slice/put_bytes in the original: it walks v's own codec.Ref fields
// and rewrites each one to point into dst instead of src. A V with no
// owned references needs no Migrator; callers pass nil.
type Migrator[T any] interface {
	Migrate(v T, src *Reader, dst *Writer) (T, error)
}

// MigratorFunc adapts a plain function to a Migrator, the same shape as
// http.HandlerFunc.
type MigratorFunc[T any] func(v T, src *Reader, dst *Writer) (T, error)

func (f MigratorFunc[T]) Migrate(v T, src *Reader, dst *Writer) (T, error) {
	return f(v, src, dst)
}

// MigrateRef performs a Ref's own migrate step: read the value ref points
// to out of src, recursively migrate any references that value itself
// owns (via m, nil when T owns none), re-append the migrated value to
// dst, and return a Ref valid in dst. A composite Migrator implementation
// calls this once per owned Ref field it carries.
func MigrateRef[T any](ref codec.Ref[T], src *Reader, dst *Writer, c codec.Codec[T], m Migrator[T]) (codec.Ref[T], error) {
	v, err := Read(src, ref, c)
	if err != nil {
		return codec.Ref[T]{}, err
	}
	if m != nil {
		v, err = m.Migrate(v, src, dst)
		if err != nil {
			return codec.Ref[T]{}, err
		}
	}
	return Append(dst, v, c)
}

// MigrateValue runs vm over v when vm is non-nil, otherwise returns v
// unchanged. Containers that migrate by reading every entry from src and
// reinserting it into a fresh container over dst call this on each value
// before inserting it, so a V embedding its own codec.Ref fields is
// relocated rather than left dangling into src.
func MigrateValue[T any](v T, src *Reader, dst *Writer, vm Migrator[T]) (T, error) {
	if vm == nil {
		return v, nil
	}
	return vm.Migrate(v, src, dst)
}

// Migrate rewrites path in place: the source is read-mapped, a fresh
// tempfile receives the migrated graph, and the tempfile atomically
// replaces path once the strategy completes.
func Migrate(path string, strategy MigrationStrategy) error {
	return MigrateTo(path, path, strategy)
}

// MigrateTo is Migrate with an explicit destination path, for migrations
// that write to a new file rather than replacing the source.
func MigrateTo(srcPath, dstPath string, strategy MigrationStrategy) error {
	mf, err := OpenMappedFile(srcPath)
	if err != nil {
		return err
	}
	defer mf.Close()

	src, err := NewReader(mf.Bytes())
	if err != nil {
		return err
	}

	dst, err := Tempfile(codec.DefaultConfig())
	if err != nil {
		return err
	}

	if err := strategy(src, dst); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Flush(); err != nil {
		return err
	}
	return dst.Persist(dstPath)
}
