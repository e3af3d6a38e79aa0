// Package variant implements the tagged-union value type carried by tree
// nodes, blackboard slots, and snapshot entries: a signed/unsigned integer,
// a double, a bool, a short or pooled string, an opaque blob, an attribute
// type code, or a stable ID. Every Variant is self-describing and
// binary-serializable (LEB128 for integers, length-prefixed for
// strings/blobs), and is small enough to be passed and stored by value.
package variant

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Kind identifies which alternative of the tagged union a Variant holds.
type Kind uint8

// Variant kinds. Zero value is Invalid so a zero Variant is never mistaken
// for a real value.
const (
	KindInvalid Kind = iota
	KindBool
	KindInt    // signed 64-bit integer
	KindUint   // unsigned 64-bit integer
	KindDouble // IEEE-754 double
	KindType   // an attribute-type code, itself a Kind value
	KindID     // a stable unsigned 64-bit ID (attribute ID or node ID)
	KindString // short inline or long pooled string
	KindBlob   // opaque fixed-width byte blob
)

// String returns a human-readable name for the kind, used in logs and
// error messages.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindDouble:
		return "double"
	case KindType:
		return "type"
	case KindID:
		return "id"
	case KindString:
		return "string"
	case KindBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// inlineStringLimit is the length at or below which a string is considered
// "short inline" per the data model; longer strings are conceptually
// pooled. Go's garbage collector makes the physical distinction moot, but
// Variant.Inline() preserves the distinction so callers that care about the
// spec's memory-layout intent (e.g. size accounting) can observe it.
const inlineStringLimit = 7

// ErrTypeMismatch is returned by accessors when called against the wrong Kind.
var ErrTypeMismatch = errors.New("variant: type mismatch")

// ErrTruncated is returned by Unpack when the buffer ends mid-value.
var ErrTruncated = errors.New("variant: truncated buffer")

// ErrUnknownKind is returned by Unpack when the type tag is not recognized.
var ErrUnknownKind = errors.New("variant: unknown kind tag")

// Variant is a tagged-union value. The zero Variant is Invalid. Variants are
// meant to be copied by value; String and Blob hold Go reference types
// internally (the runtime, not the CORE, owns their backing memory). A
// Variant carries a tag, a 64-bit payload, a string header and a slice
// header side by side, so it occupies 56 bytes on 64-bit platforms.
type Variant struct {
	kind Kind
	n    uint64 // bool/int/uint/double bits/type-code/id payload
	s    string // string payload
	b    []byte // blob payload
}

// Invalid is the zero-value sentinel Variant.
var Invalid = Variant{}

// IsValid reports whether v holds a real value.
func (v Variant) IsValid() bool { return v.kind != KindInvalid }

// Kind returns the Variant's tag.
func (v Variant) Kind() Kind { return v.kind }

// NewBool constructs a bool Variant.
func NewBool(b bool) Variant {
	var n uint64
	if b {
		n = 1
	}

	return Variant{kind: KindBool, n: n}
}

// NewInt constructs a signed-integer Variant.
func NewInt(i int64) Variant {
	return Variant{kind: KindInt, n: uint64(i)}
}

// NewUint constructs an unsigned-integer Variant.
func NewUint(u uint64) Variant {
	return Variant{kind: KindUint, n: u}
}

// NewDouble constructs a double Variant.
func NewDouble(f float64) Variant {
	return Variant{kind: KindDouble, n: math.Float64bits(f)}
}

// NewTypeCode constructs a Variant carrying an attribute type code.
func NewTypeCode(k Kind) Variant {
	return Variant{kind: KindType, n: uint64(k)}
}

// NewID constructs a Variant carrying a stable ID (attribute or node ID).
func NewID(id uint64) Variant {
	return Variant{kind: KindID, n: id}
}

// NewString constructs a string Variant. Strings of inlineStringLimit bytes
// or fewer are considered inline; longer strings are considered pooled (see
// Inline).
func NewString(s string) Variant {
	return Variant{kind: KindString, s: s}
}

// NewBlob constructs an opaque-blob Variant. The slice is retained, not
// copied; callers must not mutate it afterwards.
func NewBlob(b []byte) Variant {
	return Variant{kind: KindBlob, b: b}
}

// Inline reports whether a string Variant is short enough to be considered
// inline per the data model (<= 7 bytes). Non-string Variants return false.
func (v Variant) Inline() bool {
	return v.kind == KindString && len(v.s) <= inlineStringLimit
}

// Bool returns the bool payload and whether v is a bool Variant.
func (v Variant) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}

	return v.n != 0, true
}

// Int returns the signed-integer payload and whether v is an int Variant.
func (v Variant) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}

	return int64(v.n), true
}

// Uint returns the unsigned-integer payload and whether v is a uint Variant.
func (v Variant) Uint() (uint64, bool) {
	if v.kind != KindUint {
		return 0, false
	}

	return v.n, true
}

// Double returns the float64 payload and whether v is a double Variant.
func (v Variant) Double() (float64, bool) {
	if v.kind != KindDouble {
		return 0, false
	}

	return math.Float64frombits(v.n), true
}

// TypeCode returns the type-code payload and whether v is a type Variant.
func (v Variant) TypeCode() (Kind, bool) {
	if v.kind != KindType {
		return KindInvalid, false
	}

	return Kind(v.n), true
}

// ID returns the stable-ID payload and whether v is an ID Variant.
func (v Variant) ID() (uint64, bool) {
	if v.kind != KindID {
		return 0, false
	}

	return v.n, true
}

// Str returns the string payload and whether v is a string Variant.
func (v Variant) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}

	return v.s, true
}

// Blob returns the blob payload and whether v is a blob Variant.
func (v Variant) Blob() ([]byte, bool) {
	if v.kind != KindBlob {
		return nil, false
	}

	return v.b, true
}

// Equal reports value-equality within the same Kind; Variants of different
// Kind (including Invalid vs anything) are always unequal.
func (v Variant) Equal(other Variant) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindInvalid:
		return true
	case KindString:
		return v.s == other.s
	case KindBlob:
		return bytesEqual(v.b, other.b)
	default:
		return v.n == other.n
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// Pack appends the LEB128/length-prefixed encoding of v to dst and returns
// the extended slice: one type-tag byte, then a kind-specific payload.
// Integers (int/uint/id/type) use unsigned LEB128 (signed ints are
// zig-zag encoded first); bool is a single byte; double is 8 raw
// little-endian bytes; string and blob are length-prefixed (LEB128 length
// then raw bytes).
func (v Variant) Pack(dst []byte) []byte {
	dst = append(dst, byte(v.kind))

	switch v.kind {
	case KindInvalid:
		return dst
	case KindBool:
		b, _ := v.Bool()
		if b {
			return append(dst, 1)
		}

		return append(dst, 0)
	case KindInt:
		i, _ := v.Int()

		return binary.AppendUvarint(dst, zigzagEncode(i))
	case KindUint:
		u, _ := v.Uint()

		return binary.AppendUvarint(dst, u)
	case KindType:
		tc, _ := v.TypeCode()

		return binary.AppendUvarint(dst, uint64(tc))
	case KindID:
		id, _ := v.ID()

		return binary.AppendUvarint(dst, id)
	case KindDouble:
		d, _ := v.Double()
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(d))

		return append(dst, buf...)
	case KindString:
		s, _ := v.Str()
		dst = binary.AppendUvarint(dst, uint64(len(s)))

		return append(dst, s...)
	case KindBlob:
		b, _ := v.Blob()
		dst = binary.AppendUvarint(dst, uint64(len(b)))

		return append(dst, b...)
	default:
		return dst
	}
}

// Unpack decodes a single Variant from the front of buf, returning the
// Variant and the number of bytes consumed.
func Unpack(buf []byte) (Variant, int, error) {
	if len(buf) == 0 {
		return Invalid, 0, fmt.Errorf("%w: empty buffer", ErrTruncated)
	}

	kind := Kind(buf[0])
	rest := buf[1:]
	consumed := 1

	switch kind {
	case KindInvalid:
		return Invalid, consumed, nil
	case KindBool:
		if len(rest) < 1 {
			return Invalid, 0, fmt.Errorf("%w: bool", ErrTruncated)
		}

		return NewBool(rest[0] != 0), consumed + 1, nil
	case KindInt:
		u, n := binary.Uvarint(rest)
		if n <= 0 {
			return Invalid, 0, fmt.Errorf("%w: int", ErrTruncated)
		}

		return NewInt(zigzagDecode(u)), consumed + n, nil
	case KindUint:
		u, n := binary.Uvarint(rest)
		if n <= 0 {
			return Invalid, 0, fmt.Errorf("%w: uint", ErrTruncated)
		}

		return NewUint(u), consumed + n, nil
	case KindType:
		u, n := binary.Uvarint(rest)
		if n <= 0 {
			return Invalid, 0, fmt.Errorf("%w: type", ErrTruncated)
		}

		return NewTypeCode(Kind(u)), consumed + n, nil
	case KindID:
		u, n := binary.Uvarint(rest)
		if n <= 0 {
			return Invalid, 0, fmt.Errorf("%w: id", ErrTruncated)
		}

		return NewID(u), consumed + n, nil
	case KindDouble:
		if len(rest) < 8 {
			return Invalid, 0, fmt.Errorf("%w: double", ErrTruncated)
		}

		return NewDouble(math.Float64frombits(binary.LittleEndian.Uint64(rest[:8]))), consumed + 8, nil
	case KindString:
		length, n := binary.Uvarint(rest)
		if n <= 0 {
			return Invalid, 0, fmt.Errorf("%w: string length", ErrTruncated)
		}

		rest = rest[n:]
		if uint64(len(rest)) < length {
			return Invalid, 0, fmt.Errorf("%w: string payload", ErrTruncated)
		}

		return NewString(string(rest[:length])), consumed + n + int(length), nil
	case KindBlob:
		length, n := binary.Uvarint(rest)
		if n <= 0 {
			return Invalid, 0, fmt.Errorf("%w: blob length", ErrTruncated)
		}

		rest = rest[n:]
		if uint64(len(rest)) < length {
			return Invalid, 0, fmt.Errorf("%w: blob payload", ErrTruncated)
		}

		payload := make([]byte, length)
		copy(payload, rest[:length])

		return NewBlob(payload), consumed + n + int(length), nil
	default:
		return Invalid, 0, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
}

func zigzagEncode(i int64) uint64 {
	return uint64((i << 1) ^ (i >> 63))
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
