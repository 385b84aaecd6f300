// Package iasi holds the record layouts of the IASI native products and the
// drivers that plug them into the nat assembler.
package iasi

import (
	"errors"

	"github.com/samcharles93/natread/pkg/nat"
)

// Instrument dimensions shared by the product layouts.
const (
	AMCO = 100  // AVHRR columns in the classified image
	AMLI = 100  // AVHRR lines in the classified image
	CCD  = 2    // corner cube directions
	IMCO = 64   // integrated imager columns
	IMLI = 64   // integrated imager lines
	NBK  = 6    // AVHRR channels used by cluster analysis
	NCL  = 7    // radiance clusters
	PN   = 4    // pixels per field of view
	S    = 8461 // spectral samples after truncation
	SB   = 3    // spectral bands
	SGI  = 25   // imager sub-grid points
	SNOT = 30   // fields of view per scan line
	SS   = 8700 // spectral samples before truncation

	// FOVs is the number of sounder pixels in one body record.
	FOVs = SNOT * PN
)

// ErrNotAvailable is returned by getters asked for a quantity the product
// does not carry.
var ErrNotAvailable = errors.New("iasi: quantity not available for product")

// Channels returns the wavenumber grid of a full IASI spectrum in cm-1.
func Channels() []float64 {
	const lo, hi = 645.0, 2760.0
	out := make([]float64, S)
	step := (hi - lo) / float64(S-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[S-1] = hi
	return out
}

func field(name string, t nat.Type, shape ...int) nat.Field {
	return nat.Field{Name: name, Type: t, Shape: nat.Dims(shape...)}
}

func scaled(name string, t nat.Type, exp int, shape ...int) nat.Field {
	return nat.Field{Name: name, Type: t, Shape: nat.Dims(shape...), Scale: nat.Exp(exp)}
}

func packed(name string, k nat.BitfieldKind, shape ...int) nat.Field {
	return nat.Field{Name: name, Type: nat.Packed, Bits: k, Shape: nat.Dims(shape...)}
}

func layout(name string, parts ...[]nat.Field) nat.Schema {
	s := nat.Schema{Name: name}
	for _, p := range parts {
		s.Fields = append(s.Fields, p...)
	}
	return s
}

// decodeExact decodes payload and requires the layout to cover it exactly.
func decodeExact(s nat.Schema, payload []byte, env nat.Env) (*nat.Decoded, error) {
	d, err := s.Decode(payload, env)
	if err != nil {
		return nil, err
	}
	if d.Consumed != len(payload) {
		return nil, sizeMismatch(s.Name, d.Consumed, len(payload))
	}
	return d, nil
}
