package codec

import "github.com/google/uuid"

type uuidCodec struct{}

func (uuidCodec) Encode(buf []byte, v uuid.UUID, cfg Config) []byte {
	return append(buf, v[:]...)
}

func (uuidCodec) Decode(b []byte, cfg Config) (uuid.UUID, []byte, error) {
	if len(b) < 16 {
		return uuid.UUID{}, nil, NewError(KindIncomplete, "uuid")
	}
	var v uuid.UUID
	copy(v[:], b[:16])
	return v, b[16:], nil
}

// UUIDCodec is the Codec[uuid.UUID] implementation: UUIDs are a fixed
// 16-byte array and need no length prefix.
func UUIDCodec() Codec[uuid.UUID] { return uuidCodec{} }
