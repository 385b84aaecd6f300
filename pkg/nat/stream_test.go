package nat

import (
	"encoding/binary"
	"fmt"
	"time"
)

// streamBuilder writes synthetic native streams for tests.
type streamBuilder struct {
	buf []byte
}

func (b *streamBuilder) record(class RecordClass, subclass, version uint8, start DatePair, payload []byte) *streamBuilder {
	h := Header{
		Class:    class,
		Subclass: subclass,
		Version:  version,
		Size:     uint32(HeaderSize + len(payload)),
		Start:    start,
		Stop:     start,
	}
	b.buf = h.AppendBinary(b.buf)
	b.buf = append(b.buf, payload...)
	return b
}

func (b *streamBuilder) mphr(lines ...string) *streamBuilder {
	var payload []byte
	for _, l := range lines {
		payload = append(payload, l...)
		payload = append(payload, '\n')
	}
	return b.record(ClassMPHR, 0, 2, DatePair{}, payload)
}

// aux writes the GIADR the test product depends on, declaring n values per body record.
func (b *streamBuilder) aux(n uint8) *streamBuilder {
	return b.record(ClassGIADR, 1, 1, DatePair{}, []byte{n})
}

// body writes a test body record with the given values and observation time.
func (b *streamBuilder) body(version uint8, at time.Time, values ...uint16) *streamBuilder {
	payload := []byte{0}
	for _, v := range values {
		payload = binary.BigEndian.AppendUint16(payload, v)
	}
	d := DatePairOf(at)
	payload = binary.BigEndian.AppendUint16(payload, d.Day)
	payload = binary.BigEndian.AppendUint32(payload, d.Millis)
	return b.record(ClassMDR, 2, version, d, payload)
}

func (b *streamBuilder) bytes() []byte { return b.buf }

var (
	testAuxSchema = Schema{Name: "aux", Fields: []Field{
		{Name: "N", Type: Uint8},
	}}
	testBodySchema = Schema{Name: "body", Fields: []Field{
		{Name: "DEGRADED", Type: Bool},
		{Name: "VALUES", Type: Uint16, Shape: []Dim{Ref("N")}, Scale: Exp(1)},
		{Name: "TIME", Type: Date},
	}}
)

// testProduct decodes body records of version 2 whose layout depends on
// the aux record's N.
type testProduct struct{}

func (testProduct) Name() string { return "test" }

func (testProduct) DecodeHeaderRecord(h Header, payload []byte) (Content, error) {
	if h.Subclass != 1 {
		return Raw{Data: payload}, nil
	}
	return testAuxSchema.Decode(payload, nil)
}

func (testProduct) Auxiliary() AuxSpec { return AuxSpec{Class: ClassGIADR, Subclass: 1} }

func (testProduct) Check(h Header) string {
	if h.Version != 2 {
		return fmt.Sprintf("unsupported subclass version %d", h.Version)
	}
	return ""
}

func (testProduct) DecodeBody(h Header, payload []byte, aux Content) (Content, error) {
	a, ok := aux.(*Decoded)
	if !ok {
		return nil, fmt.Errorf("aux record not decoded")
	}
	return testBodySchema.Decode(payload, Env{"N": a.Int("N")})
}

func (testProduct) BodyTimes(c Content) (time.Time, time.Time, bool) {
	d, ok := c.(*Decoded)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	v, ok := d.Get("TIME")
	if !ok || len(v.Dates) == 0 {
		return time.Time{}, time.Time{}, false
	}
	t := v.Dates[0].Time()
	return t, t, true
}

func at(minute int) time.Time {
	return time.Date(2024, time.March, 5, 10, minute, 0, 0, time.UTC)
}
