package nat

import "time"

// AuxSpec names the header-prefix record that body records depend on.
type AuxSpec struct {
	Class    RecordClass
	Subclass uint8
	// AnySubclass matches the first record of Class regardless of subclass.
	AnySubclass bool
	// Max is the number of matching records tolerated; 0 means 1.
	Max int
}

func (a AuxSpec) matches(h Header) bool {
	return h.Class == a.Class && (a.AnySubclass || h.Subclass == a.Subclass)
}

// Product supplies the record layouts of one product variant to the
// assembler. Implementations must be safe for concurrent DecodeBody calls.
type Product interface {
	Name() string

	// DecodeHeaderRecord interprets a GIADR. Unknown subclasses return Raw.
	DecodeHeaderRecord(h Header, payload []byte) (Content, error)

	Auxiliary() AuxSpec

	// Check returns a non-empty reason when a body record must not be decoded.
	Check(h Header) string

	// DecodeBody interprets one body record using the auxiliary content.
	DecodeBody(h Header, payload []byte, aux Content) (Content, error)
}

// Timed is implemented by products that can report the observation time span
// of a decoded body record.
type Timed interface {
	BodyTimes(c Content) (start, stop time.Time, ok bool)
}

// Resolver picks a product once the main product header is known.
type Resolver func(m *MPHR, source string) (Product, error)

// Dispatch selects the first-pass decoder for one record. Body records are
// returned as Raw and decoded in the second pass.
func Dispatch(h Header, payload []byte, p Product) (Content, error) {
	switch h.Class {
	case ClassMPHR:
		return ParseMPHR(payload)
	case ClassGIADR:
		if p == nil {
			return Raw{Data: payload}, nil
		}
		return p.DecodeHeaderRecord(h, payload)
	default:
		return Raw{Data: payload}, nil
	}
}
