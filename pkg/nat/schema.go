package nat

import (
	"errors"
	"fmt"
	"maps"
	"math"
)

// Dim is one axis of a field shape: either a constant or the name of an
// integer resolved when the record is decoded.
type Dim struct {
	N   int
	Ref string
}

// Dims builds a constant shape.
func Dims(n ...int) []Dim {
	out := make([]Dim, len(n))
	for i, d := range n {
		out[i] = Dim{N: d}
	}
	return out
}

// Ref names a dimension supplied by the environment or an earlier field.
func Ref(name string) Dim { return Dim{Ref: name} }

// Field describes one entry of a record layout.
type Field struct {
	Name  string
	Type  Type
	Bits  BitfieldKind
	Shape []Dim
	Scale Scale
}

// Env carries named integers used to resolve Ref dimensions.
type Env map[string]int

func (e Env) resolve(shape []Dim) ([]int, error) {
	out := make([]int, len(shape))
	for i, d := range shape {
		if d.Ref == "" {
			out[i] = d.N
			continue
		}
		n, ok := e[d.Ref]
		if !ok {
			return nil, fmt.Errorf("%w: unresolved dimension %q", ErrInvalidShape, d.Ref)
		}
		out[i] = n
	}
	return out, nil
}

// Schema is an ordered record layout interpreted by Decode.
type Schema struct {
	Name   string
	Fields []Field
}

// Decode walks the layout over payload. Every integer scalar decoded along
// the way is added to a private copy of env so later fields can use it as a
// dimension.
func (s Schema) Decode(payload []byte, env Env) (*Decoded, error) {
	local := maps.Clone(env)
	if local == nil {
		local = Env{}
	}
	d := newDecoded(s.Name, len(s.Fields))
	off := 0
	for _, f := range s.Fields {
		shape, err := local.resolve(f.Shape)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.Name, f.Name, err)
		}
		var (
			v Value
			n int
		)
		if f.Type == Packed {
			v, n, err = DecodeBitfields(payload[off:], f.Bits, shape)
		} else {
			v, n, err = DecodeField(payload[off:], f.Type, shape, f.Scale)
		}
		if err != nil {
			var tf *TruncatedFieldError
			if errors.As(err, &tf) {
				tf.Field = s.Name + "." + f.Name
				tf.Offset = off
			}
			return nil, err
		}
		d.put(f.Name, v)
		off += n
		if v.IsScalar() && v.Type != Date && v.Type != Packed && !f.Type.IsVInt() {
			if x := v.Float(); !math.IsNaN(x) {
				local[f.Name] = int(x)
			}
		}
	}
	d.Consumed = off
	return d, nil
}

// Size returns the encoded size of the layout when every dimension resolves
// from env alone.
func (s Schema) Size(env Env) (int, bool) {
	total := 0
	for _, f := range s.Fields {
		shape, err := env.resolve(f.Shape)
		if err != nil {
			return 0, false
		}
		n, err := shapeLen(shape)
		if err != nil {
			return 0, false
		}
		width := f.Type.Size()
		if f.Type == Packed {
			width = f.Bits.Size()
		}
		total += n * width
	}
	return total, true
}

// Offsets returns the cumulative end offset of each field, for layouts whose
// dimensions resolve from env alone.
func (s Schema) Offsets(env Env) (map[string]int, bool) {
	out := make(map[string]int, len(s.Fields))
	total := 0
	for _, f := range s.Fields {
		n, ok := Schema{Fields: []Field{f}}.Size(env)
		if !ok {
			return nil, false
		}
		total += n
		out[f.Name] = total
	}
	return out, true
}

// Extend returns a copy of s with fields appended.
func (s Schema) Extend(name string, fields ...Field) Schema {
	out := Schema{Name: name, Fields: make([]Field, 0, len(s.Fields)+len(fields))}
	out.Fields = append(out.Fields, s.Fields...)
	out.Fields = append(out.Fields, fields...)
	return out
}
