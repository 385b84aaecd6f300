package iasi

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/samcharles93/natread/pkg/nat"
)

// stream writes synthetic native streams for tests.
type stream struct {
	buf []byte
}

func (s *stream) record(class nat.RecordClass, subclass, version uint8, start time.Time, payload []byte) *stream {
	d := nat.DatePairOf(start)
	h := nat.Header{
		Class:    class,
		Subclass: subclass,
		Version:  version,
		Size:     uint32(nat.HeaderSize + len(payload)),
		Start:    d,
		Stop:     d,
	}
	s.buf = h.AppendBinary(s.buf)
	s.buf = append(s.buf, payload...)
	return s
}

func (s *stream) mphr(lines ...string) *stream {
	var payload []byte
	for _, l := range lines {
		payload = append(payload, l...)
		payload = append(payload, '\n')
	}
	return s.record(nat.ClassMPHR, 0, 2, nat.Epoch, payload)
}

func (s *stream) assemble(t *testing.T, name string) (*nat.File, []nat.Diagnostic) {
	t.Helper()
	var diags []nat.Diagnostic
	f, err := nat.Assemble(s.buf, nat.Options{
		Resolve:     Detect,
		Source:      name,
		Diagnostics: func(d nat.Diagnostic) { diags = append(diags, d) },
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return f, diags
}

// starts returns the byte offset at which each field of s begins.
func starts(t *testing.T, s nat.Schema, env nat.Env) map[string]int {
	t.Helper()
	out := make(map[string]int, len(s.Fields))
	off := 0
	for _, f := range s.Fields {
		out[f.Name] = off
		n, ok := nat.Schema{Fields: []nat.Field{f}}.Size(env)
		if !ok {
			t.Fatalf("size of %s.%s does not resolve", s.Name, f.Name)
		}
		off += n
	}
	return out
}

// sized allocates a zeroed payload covering the whole layout.
func sized(t *testing.T, s nat.Schema, env nat.Env) []byte {
	t.Helper()
	n, ok := s.Size(env)
	if !ok {
		t.Fatalf("size of %s does not resolve", s.Name)
	}
	return make([]byte, n)
}

func putU16(b []byte, off int, v uint16) { binary.BigEndian.PutUint16(b[off:], v) }
func putU32(b []byte, off int, v uint32) { binary.BigEndian.PutUint32(b[off:], v) }
func putI16(b []byte, off int, v int16)  { putU16(b, off, uint16(v)) }
func putI32(b []byte, off int, v int32)  { putU32(b, off, uint32(v)) }

func putDate(b []byte, off int, t time.Time) {
	d := nat.DatePairOf(t)
	putU16(b, off, d.Day)
	putU32(b, off+2, d.Millis)
}

func at(minute int) time.Time {
	return time.Date(2024, time.March, 5, 10, minute, 0, 0, time.UTC)
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 1e-9*max(1, b, -b)
}
