package mumbleproto

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// encoder appends proto2 fields. Optional fields are skipped when nil.
type encoder struct {
	b []byte
}

func (e *encoder) varint(num protowire.Number, v uint64) {
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
}

func (e *encoder) uint32(num protowire.Number, v uint32) { e.varint(num, uint64(v)) }

// int32 sign-extends like protoc does for negative values.
func (e *encoder) int32(num protowire.Number, v int32) { e.varint(num, uint64(int64(v))) }

func (e *encoder) bool(num protowire.Number, v bool) { e.varint(num, protowire.EncodeBool(v)) }

func (e *encoder) float(num protowire.Number, v float32) {
	e.b = protowire.AppendTag(e.b, num, protowire.Fixed32Type)
	e.b = protowire.AppendFixed32(e.b, math.Float32bits(v))
}

func (e *encoder) string(num protowire.Number, v string) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, v)
}

func (e *encoder) bytes(num protowire.Number, v []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
}

func (e *encoder) optUint32(num protowire.Number, v *uint32) {
	if v != nil {
		e.uint32(num, *v)
	}
}

func (e *encoder) optInt32(num protowire.Number, v *int32) {
	if v != nil {
		e.int32(num, *v)
	}
}

func (e *encoder) optBool(num protowire.Number, v *bool) {
	if v != nil {
		e.bool(num, *v)
	}
}

func (e *encoder) optString(num protowire.Number, v *string) {
	if v != nil {
		e.string(num, *v)
	}
}

func (e *encoder) optBytes(num protowire.Number, v []byte) {
	if v != nil {
		e.bytes(num, v)
	}
}

func (e *encoder) uint32s(num protowire.Number, vs []uint32) {
	for _, v := range vs {
		e.uint32(num, v)
	}
}

func (e *encoder) int32s(num protowire.Number, vs []int32) {
	for _, v := range vs {
		e.int32(num, v)
	}
}

// field is one decoded wire value.
type field struct {
	num  protowire.Number
	typ  protowire.Type
	v    uint64
	data []byte
}

func (f field) uint32() uint32   { return uint32(f.v) }
func (f field) uint64() uint64   { return f.v }
func (f field) int32() int32     { return int32(f.v) }
func (f field) bool() bool       { return protowire.DecodeBool(f.v) }
func (f field) float() float32   { return math.Float32frombits(uint32(f.v)) }
func (f field) string() string   { return string(f.data) }
func (f field) bytes() []byte    { return append([]byte{}, f.data...) }
func (f field) uint32p() *uint32 { v := f.uint32(); return &v }
func (f field) int32p() *int32   { v := f.int32(); return &v }
func (f field) boolp() *bool     { v := f.bool(); return &v }
func (f field) stringp() *string { v := f.string(); return &v }

// appendUint32s accepts both packed and unpacked repeated encodings.
func (f field) appendUint32s(dst []uint32) ([]uint32, error) {
	if f.typ != protowire.BytesType {
		return append(dst, f.uint32()), nil
	}
	b := f.data
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return dst, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		dst = append(dst, uint32(v))
		b = b[n:]
	}
	return dst, nil
}

func (f field) appendInt32s(dst []int32) ([]int32, error) {
	u, err := f.appendUint32s(nil)
	for _, v := range u {
		dst = append(dst, int32(v))
	}
	return dst, err
}

// walk calls fn for every field in b. Unknown fields are consumed and passed on.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.v = uint64(v)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.data, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Ptr is a helper for optional fields.
func Ptr[T any](v T) *T { return &v }
