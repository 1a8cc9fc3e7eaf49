package codec

import "github.com/shopspring/decimal"

// Decimal is an opt-in value type a caller may use as a container's V (or
// K) when they want exact decimal arithmetic instead of float64. It
// round-trips through decimal.Decimal's own binary marshaling.
type Decimal struct {
	decimal.Decimal
}

type decimalCodec struct{}

func (decimalCodec) Encode(buf []byte, v Decimal, cfg Config) []byte {
	b, err := v.MarshalBinary()
	if err != nil {
		// decimal.Decimal's MarshalBinary cannot fail for any value
		// constructible through its public API.
		panic(err)
	}
	return EncodeBytes(buf, b, cfg)
}

func (decimalCodec) Decode(b []byte, cfg Config) (Decimal, []byte, error) {
	raw, rest, err := DecodeBytes(b, cfg)
	if err != nil {
		return Decimal{}, nil, err
	}
	var d decimal.Decimal
	if err := d.UnmarshalBinary(raw); err != nil {
		return Decimal{}, nil, WrapError(KindIncomplete, "decimal", err)
	}
	return Decimal{Decimal: d}, rest, nil
}

// DecimalCodec is the Codec[Decimal] implementation.
func DecimalCodec() Codec[Decimal] { return decimalCodec{} }
