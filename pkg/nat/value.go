package nat

import (
	"fmt"
	"math"
	"time"
)

// Value is one decoded field. Integer, boolean and vint elements are held as
// float64 so a missing sentinel can surface as NaN. Elements are stored flat
// in row-major order; Shape is nil when the field collapsed to a scalar.
type Value struct {
	Type  Type
	Shape []int

	Num   []float64
	Dates []DatePair
	Bits  []Bitfield
}

func (v Value) IsScalar() bool { return len(v.Shape) == 0 }

// Len is the number of elements.
func (v Value) Len() int {
	switch {
	case v.Type == Date:
		return len(v.Dates)
	case v.Bits != nil:
		return len(v.Bits)
	default:
		return len(v.Num)
	}
}

// Float returns the first element, or NaN when the value is empty.
func (v Value) Float() float64 {
	if len(v.Num) == 0 {
		return math.NaN()
	}
	return v.Num[0]
}

// Int returns the first element truncated to an integer. Missing values read as -1.
func (v Value) Int() int {
	f := v.Float()
	if math.IsNaN(f) {
		return -1
	}
	return int(f)
}

func (v Value) Bool() bool { return v.Float() != 0 }

func (v Value) Missing() bool { return math.IsNaN(v.Float()) }

// Floats returns the flat element slice.
func (v Value) Floats() []float64 { return v.Num }

// Index converts a multi-dimensional index to a flat offset. It panics on a
// rank mismatch or an out-of-range coordinate, like slice indexing.
func (v Value) Index(idx ...int) int {
	if len(idx) != len(v.Shape) {
		if len(v.Shape) == 0 && len(idx) == 1 && idx[0] == 0 {
			return 0
		}
		panic(fmt.Sprintf("nat: index rank %d for shape %v", len(idx), v.Shape))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= v.Shape[i] {
			panic(fmt.Sprintf("nat: index %v out of range for shape %v", idx, v.Shape))
		}
		off = off*v.Shape[i] + x
	}
	return off
}

func (v Value) At(idx ...int) float64 { return v.Num[v.Index(idx...)] }

// Row returns the sub-array at position i of the leading axis.
func (v Value) Row(i int) Value {
	if len(v.Shape) == 0 {
		panic("nat: Row on scalar value")
	}
	if i < 0 || i >= v.Shape[0] {
		panic(fmt.Sprintf("nat: row %d out of range for shape %v", i, v.Shape))
	}
	stride := 1
	for _, d := range v.Shape[1:] {
		stride *= d
	}
	out := Value{Type: v.Type}
	if len(v.Shape) > 1 && stride != 1 {
		out.Shape = append([]int(nil), v.Shape[1:]...)
	}
	lo, hi := i*stride, (i+1)*stride
	switch {
	case v.Type == Date:
		out.Dates = v.Dates[lo:hi]
	case v.Bits != nil:
		out.Bits = v.Bits[lo:hi]
	default:
		out.Num = v.Num[lo:hi]
	}
	return out
}

// Column gathers element k of the trailing axis for every leading position,
// e.g. the latitudes of a (scan, pixel, 2) location block.
func (v Value) Column(k int) []float64 {
	if len(v.Shape) == 0 {
		return []float64{v.Float()}
	}
	last := v.Shape[len(v.Shape)-1]
	if k < 0 || k >= last {
		panic(fmt.Sprintf("nat: column %d out of range for shape %v", k, v.Shape))
	}
	out := make([]float64, 0, len(v.Num)/last)
	for off := k; off < len(v.Num); off += last {
		out = append(out, v.Num[off])
	}
	return out
}

// Times converts a date-pair value to instants.
func (v Value) Times() []time.Time {
	out := make([]time.Time, len(v.Dates))
	for i, d := range v.Dates {
		out[i] = d.Time()
	}
	return out
}
