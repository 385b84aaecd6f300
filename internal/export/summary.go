package export

import (
	"math"
	"time"

	"github.com/samcharles93/natread/pkg/nat"
)

// FileSummary is the overview printed by inspect and served by the API.
type FileSummary struct {
	Source    string            `json:"source"`
	Product   string            `json:"product,omitempty"`
	Size      int64             `json:"size"`
	Records   int               `json:"records"`
	Header    int               `json:"header_records"`
	Body      int               `json:"body_records"`
	Malformed int               `json:"malformed"`
	Start     *time.Time        `json:"start,omitempty"`
	Stop      *time.Time        `json:"stop,omitempty"`
	Describe  map[string]string `json:"describe,omitempty"`
	Orbit     *nat.OrbitState   `json:"orbit,omitempty"`
	MPHR      []nat.Pair        `json:"mphr,omitempty"`
}

func Summarize(f *nat.File) FileSummary {
	s := FileSummary{
		Source:    f.Source,
		Size:      f.Size(),
		Records:   f.Len(),
		Header:    len(f.Header()),
		Body:      len(f.Body()),
		Malformed: f.MalformedCount(),
	}
	if f.Product != nil {
		s.Product = f.Product.Name()
	}
	if body := f.Body(); len(body) > 0 {
		start, _ := f.TimeRange(body[0])
		_, stop := f.TimeRange(body[len(body)-1])
		s.Start, s.Stop = &start, &stop
	}
	if m, err := f.MPHR(); err == nil {
		s.Describe = m.Describe()
		orbit := m.OrbitState()
		s.Orbit = &orbit
		s.MPHR = m.Pairs()
	}
	return s
}

// RecordRow is one line of a record listing.
type RecordRow struct {
	Index    int       `json:"index"`
	Offset   int       `json:"offset"`
	Class    string    `json:"class"`
	Subclass uint8     `json:"subclass"`
	Version  uint8     `json:"version"`
	Size     uint32    `json:"size"`
	Start    time.Time `json:"start"`
	Stop     time.Time `json:"stop"`
	Content  string    `json:"content"`
}

func Rows(f *nat.File) []RecordRow {
	out := make([]RecordRow, 0, f.Len())
	for _, r := range f.Records() {
		out = append(out, Row(f, r))
	}
	return out
}

func Row(f *nat.File, r *nat.Record) RecordRow {
	start, stop := f.TimeRange(r)
	return RecordRow{
		Index:    r.Index,
		Offset:   r.Offset,
		Class:    r.Header.Class.String(),
		Subclass: r.Header.Subclass,
		Version:  r.Header.Version,
		Size:     r.Header.Size,
		Start:    start,
		Stop:     stop,
		Content:  ContentKind(r),
	}
}

// ContentKind names what a record holds after assembly.
func ContentKind(r *nat.Record) string {
	switch r.Content.(type) {
	case *nat.Decoded:
		return "decoded"
	case *nat.MPHR:
		return "mphr"
	case nat.Placeholder:
		return "malformed"
	case nat.Raw:
		if r.Pending() {
			return "pending"
		}
		return "raw"
	default:
		return "unknown"
	}
}

// Field is one decoded field. Missing numeric elements are null.
type Field struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Shape  []int          `json:"shape,omitempty"`
	Values []*float64     `json:"values,omitempty"`
	Times  []time.Time    `json:"times,omitempty"`
	Bits   []nat.Bitfield `json:"bits,omitempty"`
}

// RecordDetail is the full rendering of one record.
type RecordDetail struct {
	RecordRow
	Schema string     `json:"schema,omitempty"`
	Reason string     `json:"reason,omitempty"`
	Fields []Field    `json:"fields,omitempty"`
	MPHR   []nat.Pair `json:"mphr,omitempty"`
}

func Detail(f *nat.File, r *nat.Record) RecordDetail {
	d := RecordDetail{RecordRow: Row(f, r)}
	switch c := r.Content.(type) {
	case *nat.Decoded:
		d.Schema = c.Schema
		d.Fields = Fields(c)
	case *nat.MPHR:
		d.MPHR = c.Pairs()
	case nat.Placeholder:
		d.Reason = c.Reason
	}
	return d
}

func Fields(d *nat.Decoded) []Field {
	out := make([]Field, 0, d.Len())
	for _, name := range d.Names() {
		v, _ := d.Get(name)
		fv := Field{Name: name, Type: v.Type.String(), Shape: v.Shape, Bits: v.Bits}
		switch {
		case v.Dates != nil:
			fv.Times = v.Times()
		case v.Num != nil:
			fv.Values = make([]*float64, len(v.Num))
			for i, x := range v.Num {
				if !math.IsNaN(x) {
					fv.Values[i] = &v.Num[i]
				}
			}
		}
		out = append(out, fv)
	}
	return out
}
