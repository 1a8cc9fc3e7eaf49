package codec

// EncodeSeq appends the length of vs followed by each element's encoding,
// in order.
func EncodeSeq[T any](buf []byte, vs []T, cfg Config, enc func([]byte, T, Config) []byte) []byte {
	buf = EncodeUint64(buf, uint64(len(vs)), 64, cfg)
	for _, v := range vs {
		buf = enc(buf, v, cfg)
	}
	return buf
}

// DecodeSeq reverses EncodeSeq.
func DecodeSeq[T any](b []byte, cfg Config, dec func([]byte, Config) (T, []byte, error)) ([]T, []byte, error) {
	n, rest, err := DecodeUint64(b, 64, cfg)
	if err != nil {
		return nil, nil, err
	}
	out := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		var v T
		v, rest, err = dec(rest, cfg)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, v)
	}
	return out, rest, nil
}

// EncodeArray appends exactly len(vs) encodings of T with no length prefix,
// the fixed-size-array counterpart of EncodeSeq.
func EncodeArray[T any](buf []byte, vs []T, cfg Config, enc func([]byte, T, Config) []byte) []byte {
	for _, v := range vs {
		buf = enc(buf, v, cfg)
	}
	return buf
}

// DecodeArray decodes exactly n elements with no length prefix.
func DecodeArray[T any](b []byte, n int, cfg Config, dec func([]byte, Config) (T, []byte, error)) ([]T, []byte, error) {
	out := make([]T, 0, n)
	rest := b
	for i := 0; i < n; i++ {
		var v T
		var err error
		v, rest, err = dec(rest, cfg)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, v)
	}
	return out, rest, nil
}
