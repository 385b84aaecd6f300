package nat

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Type tags a primitive on-disk encoding. All multi-byte encodings are big-endian.
type Type uint8

const (
	TypeInvalid Type = iota
	Bool
	Int8
	Int16
	Int32
	Uint8
	Uint16
	Uint32
	// Byte is an opaque octet: no sentinel, no scale.
	Byte
	// SByte is a signed octet whose whole range, -128 included, is data.
	SByte
	// VUint2 and VUint4 are exponent-prefixed integers with an unsigned mantissa.
	VUint2
	VUint4
	// VInt4 is the exponent-prefixed integer with a two's complement mantissa.
	VInt4
	// Date is a {day u16, ms u32} pair counted from Epoch.
	Date
	// Packed elements are sized by their BitfieldKind and decoded with DecodeBitfields.
	Packed
)

// Epoch is the origin of every date pair in the format.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	Bool:        "b",
	Int8:        "i1",
	Int16:       "i2",
	Int32:       "i4",
	Uint8:       "u1",
	Uint16:      "u2",
	Uint32:      "u4",
	Byte:        "byte",
	SByte:       "sbyte",
	VUint2:      "vu2",
	VUint4:      "vu4",
	VInt4:       "vi4",
	Date:        "date",
	Packed:      "bitfield",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Size is the encoded width of one element, or 0 for Packed and unknown tags.
func (t Type) Size() int {
	switch t {
	case Bool, Int8, Uint8, Byte, SByte:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32:
		return 4
	case VUint2:
		return 3
	case VUint4, VInt4:
		return 5
	case Date:
		return 6
	default:
		return 0
	}
}

// IsVInt reports whether t carries its own decimal exponent.
func (t Type) IsVInt() bool {
	return t == VUint2 || t == VUint4 || t == VInt4
}

// Scale is an optional decimal exponent applied to fixed-point fields.
type Scale struct {
	exp int
	set bool
}

// NoScale leaves decoded values untouched.
var NoScale Scale

// Exp returns a scale that divides decoded values by 10^e.
func Exp(e int) Scale { return Scale{exp: e, set: true} }

func (s Scale) Exponent() (int, bool) { return s.exp, s.set }

func (s Scale) apply(x float64) float64 {
	if !s.set {
		return x
	}
	return pow10Div(x, s.exp)
}

// pow10Div returns x / 10^e with a single correctly rounded operation.
func pow10Div(x float64, e int) float64 {
	if e >= 0 {
		return x / math.Pow10(e)
	}
	return x * math.Pow10(-e)
}

// DatePair is a raw {day, millisecond} stamp.
type DatePair struct {
	Day    uint16
	Millis uint32
}

func (d DatePair) Time() time.Time {
	return Epoch.AddDate(0, 0, int(d.Day)).Add(time.Duration(d.Millis) * time.Millisecond)
}

// DatePairOf is the inverse of DatePair.Time for instants at or after Epoch.
func DatePairOf(t time.Time) DatePair {
	d := t.UTC().Sub(Epoch)
	day := d / (24 * time.Hour)
	ms := (d - day*24*time.Hour) / time.Millisecond
	return DatePair{Day: uint16(day), Millis: uint32(ms)}
}

// DecodeField reads product(shape) elements of type t from the start of b.
// It returns the value and the number of bytes consumed.
// Missing sentinels of plain integer types decode to NaN; scale is applied
// after the sentinel check and never to vint or date encodings.
func DecodeField(b []byte, t Type, shape []int, scale Scale) (Value, int, error) {
	width := t.Size()
	if width == 0 {
		return Value{}, 0, &UnknownTypeError{Type: t}
	}
	n, err := shapeLen(shape)
	if err != nil {
		return Value{}, 0, err
	}
	need := n * width
	if need > len(b) {
		return Value{}, 0, &TruncatedFieldError{Need: need, Have: len(b)}
	}

	v := Value{Type: t}
	if n != 1 {
		v.Shape = append([]int(nil), shape...)
	}
	b = b[:need]

	if t == Date {
		v.Dates = make([]DatePair, n)
		for i := range v.Dates {
			off := i * 6
			v.Dates[i] = DatePair{
				Day:    binary.BigEndian.Uint16(b[off:]),
				Millis: binary.BigEndian.Uint32(b[off+2:]),
			}
		}
		return v, need, nil
	}

	v.Num = make([]float64, n)
	for i := range v.Num {
		x := decodeElem(b[i*width:], t)
		if !t.IsVInt() && t != Bool && t != Byte && t != SByte {
			x = scale.apply(x)
		}
		v.Num[i] = x
	}
	return v, need, nil
}

func decodeElem(b []byte, t Type) float64 {
	switch t {
	case Bool:
		if b[0] != 0 {
			return 1
		}
		return 0
	case Byte:
		return float64(b[0])
	case SByte:
		return float64(int8(b[0]))
	case Int8:
		x := int8(b[0])
		if x == math.MinInt8 {
			return math.NaN()
		}
		return float64(x)
	case Uint8:
		if b[0] == math.MaxUint8 {
			return math.NaN()
		}
		return float64(b[0])
	case Int16:
		x := int16(binary.BigEndian.Uint16(b))
		if x == math.MinInt16 {
			return math.NaN()
		}
		return float64(x)
	case Uint16:
		x := binary.BigEndian.Uint16(b)
		if x == math.MaxUint16 {
			return math.NaN()
		}
		return float64(x)
	case Int32:
		x := int32(binary.BigEndian.Uint32(b))
		if x == math.MinInt32 {
			return math.NaN()
		}
		return float64(x)
	case Uint32:
		x := binary.BigEndian.Uint32(b)
		if x == math.MaxUint32 {
			return math.NaN()
		}
		return float64(x)
	case VUint2:
		return pow10Div(float64(binary.BigEndian.Uint16(b[1:])), int(int8(b[0])))
	case VUint4:
		return pow10Div(float64(binary.BigEndian.Uint32(b[1:])), int(int8(b[0])))
	case VInt4:
		return pow10Div(float64(int32(binary.BigEndian.Uint32(b[1:]))), int(int8(b[0])))
	}
	return math.NaN()
}

func shapeLen(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: dimension %d", ErrInvalidShape, d)
		}
		n *= d
	}
	return n, nil
}
