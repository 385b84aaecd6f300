// Package toy writes small synthetic IASI L1C native files. Every sounder
// pixel carries a location derived from its record and pixel index, so
// consumers can check which records survived a selection or a split.
package toy

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/samcharles93/natread/pkg/iasi"
	"github.com/samcharles93/natread/pkg/nat"
)

// Start is the sensing start of the first body record.
var Start = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

// ScanPeriod separates consecutive body records.
const ScanPeriod = 8 * time.Second

// Builder appends records to an in-memory stream.
type Builder struct {
	buf []byte
}

func (b *Builder) Record(class nat.RecordClass, subclass, version uint8, start, stop time.Time, payload []byte) *Builder {
	h := nat.Header{
		Class:    class,
		Subclass: subclass,
		Version:  version,
		Size:     uint32(nat.HeaderSize + len(payload)),
		Start:    nat.DatePairOf(start),
		Stop:     nat.DatePairOf(stop),
	}
	b.buf = h.AppendBinary(b.buf)
	b.buf = append(b.buf, payload...)
	return b
}

func (b *Builder) MPHR(lines ...string) *Builder {
	var payload []byte
	for _, l := range lines {
		payload = append(payload, l...)
		payload = append(payload, '\n')
	}
	return b.Record(nat.ClassMPHR, 0, 2, nat.Epoch, nat.Epoch, payload)
}

func (b *Builder) Bytes() []byte { return b.buf }

// Latitude and Longitude are the coordinates toy files give pixel px of
// body record rec. Both are exact in micro-degrees.
func Latitude(rec, px int) float64  { return float64(rec) + float64(px)/8 }
func Longitude(rec, px int) float64 { return -Latitude(rec, px) }

// RecordTime is the sensing start of body record rec.
func RecordTime(rec int) time.Time { return Start.Add(time.Duration(rec) * ScanPeriod) }

// L1C returns a complete file with n body records. Body records listed in
// bad are written with an unsupported version so the assembler isolates
// them.
func L1C(n int, bad ...int) []byte {
	isBad := make(map[int]bool, len(bad))
	for _, i := range bad {
		isBad[i] = true
	}

	stop := RecordTime(n)
	b := &Builder{}
	b.MPHR(
		"PRODUCT_NAME = IASI_xxx_1C_M01_"+Start.Format(nat.StampLayout)+"_"+stop.Format(nat.StampLayout)+"_N_O_"+Start.Format(nat.StampLayout),
		"PRODUCT_TYPE = xxx",
		"PROCESSING_LEVEL = 1C",
		"SPACECRAFT_ID = M01",
		"INSTRUMENT_ID = IASI",
		"SENSING_START = "+Start.Format(nat.StampLayout),
		"SENSING_END = "+stop.Format(nat.StampLayout),
		fmt.Sprintf("TOTAL_MDR = %d", n),
	)
	b.Record(nat.ClassGIADR, iasi.L1CScaleFactorSubclass, 1, nat.Epoch, nat.Epoch, ScaleFactors())
	for i := range n {
		t := RecordTime(i)
		if isBad[i] {
			b.Record(nat.ClassMDR, 2, 3, t, t, []byte{0})
			continue
		}
		b.Record(nat.ClassMDR, 2, 5, t, t.Add(ScanPeriod), L1CRecord(i))
	}
	return b.Bytes()
}

// ScaleFactors is a scale-factor GIADR applying 10^-5 to the whole spectrum.
func ScaleFactors() []byte {
	p := make([]byte, 64)
	binary.BigEndian.PutUint16(p, 1)
	binary.BigEndian.PutUint16(p[2:], 1)
	binary.BigEndian.PutUint16(p[22:], iasi.S)
	binary.BigEndian.PutUint16(p[42:], 5)
	binary.BigEndian.PutUint16(p[62:], 5)
	return p
}

// L1CRecord builds a version 5 body record for body index rec.
func L1CRecord(rec int) []byte {
	s := iasi.L1CMDRv5
	size, _ := s.Size(nil)
	st := fieldStarts(s)
	p := make([]byte, size)

	put32 := func(off int, v int32) { binary.BigEndian.PutUint32(p[off:], uint32(v)) }
	put32(st["IDefNsfirst1b"], 1)
	put32(st["IDefNslast1b"], iasi.S)

	t0 := RecordTime(rec)
	for scan := range iasi.SNOT {
		d := nat.DatePairOf(t0.Add(time.Duration(scan) * ScanPeriod / iasi.SNOT))
		off := st["GEPSDatIasi"] + 6*scan
		binary.BigEndian.PutUint16(p[off:], d.Day)
		binary.BigEndian.PutUint32(p[off+2:], d.Millis)
	}
	for px := range iasi.FOVs {
		off := st["GGeoSondLoc"] + 8*px
		put32(off, int32(Longitude(rec, px)*1e6))
		put32(off+4, int32(Latitude(rec, px)*1e6))
		put32(st["GGeoSondAnglesMETOP"]+8*px, 30_000_000)
		put32(st["GGeoSondAnglesSUN"]+8*px, 60_000_000)
		p[st["GEUMAvhrr1BCldFrac"]+px] = byte(px % 101)
	}
	return p
}

func fieldStarts(s nat.Schema) map[string]int {
	out := make(map[string]int, len(s.Fields))
	off := 0
	for _, f := range s.Fields {
		out[f.Name] = off
		n, _ := nat.Schema{Fields: []nat.Field{f}}.Size(nil)
		off += n
	}
	return out
}
