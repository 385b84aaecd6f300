package nat

import (
	"encoding/binary"
	"fmt"
	"time"
)

// HeaderSize is the encoded size of the generic record header.
const HeaderSize = 20

// RecordClass identifies a record's role in the product.
type RecordClass uint8

const (
	ClassMPHR RecordClass = iota + 1
	ClassSPHR
	ClassIPR
	ClassGEADR
	ClassGIADR
	ClassVEADR
	ClassVIADR
	ClassMDR
	// ClassMalformed is assigned by the assembler to body records it refused
	// to decode. It never appears on disk.
	ClassMalformed
)

var classNames = [...]string{
	ClassMPHR:      "MPHR",
	ClassSPHR:      "SPHR",
	ClassIPR:       "IPR",
	ClassGEADR:     "GEADR",
	ClassGIADR:     "GIADR",
	ClassVEADR:     "VEADR",
	ClassVIADR:     "VIADR",
	ClassMDR:       "MDR",
	ClassMalformed: "MDR(bad)",
}

func (c RecordClass) Valid() bool { return c >= ClassMPHR && c <= ClassMalformed }

func (c RecordClass) String() string {
	if c.Valid() {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ParseRecordClass maps a class name such as "GIADR" back to its code.
func ParseRecordClass(s string) (RecordClass, bool) {
	for c := ClassMPHR; c <= ClassMalformed; c++ {
		if classNames[c] == s {
			return c, true
		}
	}
	return 0, false
}

// Header is the generic record header. It is a value type; relabeling
// produces a new Header and leaves the on-disk bytes untouched.
type Header struct {
	Class           RecordClass
	InstrumentGroup uint8
	Subclass        uint8
	Version         uint8
	Size            uint32
	Start           DatePair
	Stop            DatePair

	raw [HeaderSize]byte
}

// ParseHeader decodes the header at the start of b and reports the bytes consumed.
func ParseHeader(b []byte) (Header, int, error) {
	if len(b) < HeaderSize {
		return Header{}, 0, fmt.Errorf("%w: have %d bytes", ErrTruncatedHeader, len(b))
	}
	h := Header{
		Class:           RecordClass(b[0]),
		InstrumentGroup: b[1],
		Subclass:        b[2],
		Version:         b[3],
		Size:            binary.BigEndian.Uint32(b[4:8]),
		Start: DatePair{
			Day:    binary.BigEndian.Uint16(b[8:10]),
			Millis: binary.BigEndian.Uint32(b[10:14]),
		},
		Stop: DatePair{
			Day:    binary.BigEndian.Uint16(b[14:16]),
			Millis: binary.BigEndian.Uint32(b[16:20]),
		},
	}
	copy(h.raw[:], b[:HeaderSize])
	if !h.Class.Valid() {
		return Header{}, 0, fmt.Errorf("%w: %d", ErrUnknownRecordClass, b[0])
	}
	if h.Size < HeaderSize {
		return Header{}, 0, fmt.Errorf("%w: record size %d", ErrInvalidRecordSize, h.Size)
	}
	return h, HeaderSize, nil
}

// AppendBinary encodes the header fields onto dst.
func (h Header) AppendBinary(dst []byte) []byte {
	dst = append(dst, byte(h.Class), h.InstrumentGroup, h.Subclass, h.Version)
	dst = binary.BigEndian.AppendUint32(dst, h.Size)
	dst = binary.BigEndian.AppendUint16(dst, h.Start.Day)
	dst = binary.BigEndian.AppendUint32(dst, h.Start.Millis)
	dst = binary.BigEndian.AppendUint16(dst, h.Stop.Day)
	dst = binary.BigEndian.AppendUint32(dst, h.Stop.Millis)
	return dst
}

// Raw returns the header exactly as it was read. Headers built in memory
// return their encoded fields.
func (h Header) Raw() []byte {
	if h.raw == ([HeaderSize]byte{}) {
		return h.AppendBinary(make([]byte, 0, HeaderSize))
	}
	out := h.raw
	return out[:]
}

// WithClass returns a copy of h carrying class c. The on-disk bytes are kept.
func (h Header) WithClass(c RecordClass) Header {
	h.Class = c
	return h
}

func (h Header) PayloadSize() int { return int(h.Size) - HeaderSize }

func (h Header) StartTime() time.Time { return h.Start.Time() }

func (h Header) StopTime() time.Time { return h.Stop.Time() }

func (h Header) String() string {
	return fmt.Sprintf("%s subclass=%d version=%d size=%d start=%s",
		h.Class, h.Subclass, h.Version, h.Size, h.StartTime().Format(time.RFC3339Nano))
}
