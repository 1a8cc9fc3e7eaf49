package codec

import "math"

// EncodeFloat64 appends the IEEE-754 bit pattern of v in cfg's endian.
// Floats always use the fixed byte representation, regardless of cfg.Fixed.
func EncodeFloat64(buf []byte, v float64, cfg Config) []byte {
	return appendFixedUint64(buf, math.Float64bits(v), 64, cfg.resolvedEndian())
}

func DecodeFloat64(b []byte, cfg Config) (float64, []byte, error) {
	u, rest, err := decodeFixedUint64(b, 64, cfg.resolvedEndian())
	if err != nil {
		return 0, nil, err
	}
	return math.Float64frombits(u), rest, nil
}

func EncodeFloat32(buf []byte, v float32, cfg Config) []byte {
	return appendFixedUint64(buf, uint64(math.Float32bits(v)), 32, cfg.resolvedEndian())
}

func DecodeFloat32(b []byte, cfg Config) (float32, []byte, error) {
	u, rest, err := decodeFixedUint64(b, 32, cfg.resolvedEndian())
	if err != nil {
		return 0, nil, err
	}
	return math.Float32frombits(uint32(u)), rest, nil
}

// EncodeOption appends the presence byte and, if present, the encoding of
// *v produced by enc.
func EncodeOption[T any](buf []byte, v *T, cfg Config, enc func([]byte, T, Config) []byte) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return enc(buf, *v, cfg)
}

// DecodeOption reverses EncodeOption. An unrecognized tag byte is a decode
// failure per spec: Option's discriminator must be 0 or 1.
func DecodeOption[T any](b []byte, cfg Config, dec func([]byte, Config) (T, []byte, error)) (*T, []byte, error) {
	if len(b) < 1 {
		return nil, nil, NewError(KindIncomplete, "option tag")
	}
	switch b[0] {
	case 0:
		return nil, b[1:], nil
	case 1:
		v, rest, err := dec(b[1:], cfg)
		if err != nil {
			return nil, nil, err
		}
		return &v, rest, nil
	default:
		return nil, nil, NewError(KindIncomplete, "illegal option tag")
	}
}

// Ref is a typed byte offset into an ark file. References are pure values
// and are freely copied; they point only into earlier bytes of the file.
type Ref[T any] struct {
	Offset uint64
}

func (r Ref[T]) Valid() bool { return true }

func EncodeRef[T any](buf []byte, r Ref[T], cfg Config) []byte {
	return EncodeUint64(buf, r.Offset, 64, cfg)
}

func DecodeRef[T any](b []byte, cfg Config) (Ref[T], []byte, error) {
	v, rest, err := DecodeUint64(b, 64, cfg)
	if err != nil {
		return Ref[T]{}, nil, err
	}
	return Ref[T]{Offset: v}, rest, nil
}
