package codec

import "unicode/utf8"

// EncodeString appends s NUL-terminated. The format does not escape
// embedded NUL bytes in s; callers that need arbitrary binary data should
// use EncodeBytes instead.
func EncodeString(buf []byte, s string, cfg Config) []byte {
	buf = append(buf, s...)
	return append(buf, 0)
}

// DecodeString scans to the first zero byte. Invalid UTF-8 decodes to an
// empty string rather than failing, matching the on-disk format's tolerant
// decode contract: the decoder never errors on non-UTF-8 input.
func DecodeString(b []byte, cfg Config) (string, []byte, error) {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	if i == len(b) {
		return "", nil, NewError(KindIncomplete, "unterminated string")
	}
	raw := b[:i]
	rest := b[i+1:]
	if !utf8.Valid(raw) {
		return "", rest, nil
	}
	return string(raw), rest, nil
}

// EncodeBytes appends a length-prefixed raw byte slice.
func EncodeBytes(buf []byte, v []byte, cfg Config) []byte {
	buf = EncodeUint64(buf, uint64(len(v)), 64, cfg)
	return append(buf, v...)
}

// DecodeBytes returns a zero-copy slice borrowed from b.
func DecodeBytes(b []byte, cfg Config) ([]byte, []byte, error) {
	n, rest, err := DecodeUint64(b, 64, cfg)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, NewError(KindIncomplete, "byte slice")
	}
	return rest[:n:n], rest[n:], nil
}
