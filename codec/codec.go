package codec

// Codec is the capability an ark container requires of its key and value
// types: encode to a scratch buffer under a Config, and decode from a byte
// slice back into a value plus the unconsumed remainder. Containers take a
// Codec[T] value at construction rather than requiring T itself to satisfy
// an interface, so built-in types like string and []byte work directly.
type Codec[T any] interface {
	Encode(buf []byte, v T, cfg Config) []byte
	Decode(b []byte, cfg Config) (T, []byte, error)
}

// EncodeValue runs c over a fresh buffer and returns the encoded bytes.
func EncodeValue[T any](c Codec[T], v T, cfg Config) []byte {
	return c.Encode(nil, v, cfg)
}

type stringCodec struct{}

func (stringCodec) Encode(buf []byte, v string, cfg Config) []byte {
	return EncodeString(buf, v, cfg)
}
func (stringCodec) Decode(b []byte, cfg Config) (string, []byte, error) {
	return DecodeString(b, cfg)
}

// StringCodec is the Codec[string] implementation, NUL-terminated tolerant
// UTF-8.
func StringCodec() Codec[string] { return stringCodec{} }

type bytesCodec struct{}

func (bytesCodec) Encode(buf []byte, v []byte, cfg Config) []byte {
	return EncodeBytes(buf, v, cfg)
}
func (bytesCodec) Decode(b []byte, cfg Config) ([]byte, []byte, error) {
	return DecodeBytes(b, cfg)
}

// BytesCodec is the Codec[[]byte] implementation, length-prefixed with a
// zero-copy decode borrow.
func BytesCodec() Codec[[]byte] { return bytesCodec{} }

type uint64Codec struct{ width int }

func (c uint64Codec) Encode(buf []byte, v uint64, cfg Config) []byte {
	return EncodeUint64(buf, v, c.width, cfg)
}
func (c uint64Codec) Decode(b []byte, cfg Config) (uint64, []byte, error) {
	return DecodeUint64(b, c.width, cfg)
}

// Uint64Codec is the Codec[uint64] implementation at the given bit width
// (8, 16, 32, 64).
func Uint64Codec(width int) Codec[uint64] { return uint64Codec{width: width} }

type int64Codec struct{ width int }

func (c int64Codec) Encode(buf []byte, v int64, cfg Config) []byte {
	return EncodeInt64(buf, v, c.width, cfg)
}
func (c int64Codec) Decode(b []byte, cfg Config) (int64, []byte, error) {
	return DecodeInt64(b, c.width, cfg)
}

// Int64Codec is the Codec[int64] implementation at the given bit width.
func Int64Codec(width int) Codec[int64] { return int64Codec{width: width} }

type float64Codec struct{}

func (float64Codec) Encode(buf []byte, v float64, cfg Config) []byte {
	return EncodeFloat64(buf, v, cfg)
}
func (float64Codec) Decode(b []byte, cfg Config) (float64, []byte, error) {
	return DecodeFloat64(b, cfg)
}

// Float64Codec is the Codec[float64] implementation.
func Float64Codec() Codec[float64] { return float64Codec{} }

type refCodec[T any] struct{}

func (refCodec[T]) Encode(buf []byte, v Ref[T], cfg Config) []byte {
	return EncodeRef(buf, v, cfg)
}
func (refCodec[T]) Decode(b []byte, cfg Config) (Ref[T], []byte, error) {
	return DecodeRef[T](b, cfg)
}

// RefCodec is the Codec[Ref[T]] implementation.
func RefCodec[T any]() Codec[Ref[T]] { return refCodec[T]{} }

// Checksum computes the CRC-32 (IEEE polynomial) of b, matching the
// standard crc32 implementation required by the file format.
func Checksum(b []byte) uint32 {
	return crc32IEEE(b)
}
