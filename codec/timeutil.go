package codec

import "time"

type timeCodec struct{}

func (timeCodec) Encode(buf []byte, v time.Time, cfg Config) []byte {
	b, err := v.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return EncodeBytes(buf, b, cfg)
}

func (timeCodec) Decode(b []byte, cfg Config) (time.Time, []byte, error) {
	raw, rest, err := DecodeBytes(b, cfg)
	if err != nil {
		return time.Time{}, nil, err
	}
	var t time.Time
	if err := t.UnmarshalBinary(raw); err != nil {
		return time.Time{}, nil, WrapError(KindIncomplete, "time", err)
	}
	return t, rest, nil
}

// TimeCodec is the Codec[time.Time] implementation, using time.Time's own
// binary marshaling (stdlib: no pack dependency wraps a timestamp codec
// beyond what time.Time already provides).
func TimeCodec() Codec[time.Time] { return timeCodec{} }
