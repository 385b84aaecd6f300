package nat

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Diagnostic describes a body record the assembler refused to decode.
type Diagnostic struct {
	// Relative is the position among body records, Absolute the position in
	// the original stream.
	Relative int
	Absolute int
	Version  uint8
	Size     uint32
	Source   string
	Reason   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("anomalous MDR at %d (rel) %d (abs): subclass version = %d, record size = %d, source = %s: %s",
		d.Relative, d.Absolute, d.Version, d.Size, d.Source, d.Reason)
}

// DiagnosticFunc receives diagnostics in record order.
type DiagnosticFunc func(Diagnostic)

// Options controls Assemble.
type Options struct {
	// Product decodes header-prefix and body records. When nil, Resolve is
	// consulted once the main product header has been read.
	Product Product
	Resolve Resolver

	Selection   Selection
	Diagnostics DiagnosticFunc

	// Workers bounds the second-pass pool; values below 2 decode sequentially.
	Workers int

	// Source names the stream in diagnostics.
	Source string
}

// File is an assembled record stream. Records hold views into the arena the
// File was built from; Close releases it.
type File struct {
	Source  string
	Product Product

	records   []*Record
	prefix    int
	aux       *Record
	size      int64
	malformed int

	closers []func() error
}

// Assemble frames data into records, applies the selection to the body and
// decodes the selected body records against the auxiliary record.
func Assemble(data []byte, opts Options) (*File, error) {
	f := &File{Source: opts.Source, Product: opts.Product, size: int64(len(data))}

	all, err := f.frame(data, opts.Resolve)
	if err != nil {
		return nil, err
	}

	split := len(all)
	for i, r := range all {
		if r.Header.Class == ClassMDR {
			split = i
			break
		}
	}
	body, err := opts.Selection.apply(all[split:])
	if err != nil {
		return nil, err
	}

	f.prefix = split
	f.records = make([]*Record, 0, split+len(body))
	f.records = append(f.records, all[:split]...)
	f.records = append(f.records, body...)

	if !hasBodyRecords(body) {
		return f, nil
	}
	if f.Product == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoProduct, opts.Source)
	}
	aux, err := findAuxiliary(all[:split], f.Product.Auxiliary())
	if err != nil {
		return nil, err
	}
	// A GIADR framed before the product was resolved is still raw bytes.
	if _, ok := aux.Content.(Raw); ok {
		return nil, fmt.Errorf("%w: record %d (%s subclass %d) precedes the MPHR",
			ErrUndecodedAuxiliary, aux.Index, aux.Header.Class, aux.Header.Subclass)
	}
	f.aux = aux

	diags := f.decodeBody(body, opts.Workers, opts.Source)
	f.malformed = len(diags)
	if opts.Diagnostics != nil {
		for _, d := range diags {
			opts.Diagnostics(d)
		}
	}
	return f, nil
}

func (f *File) frame(data []byte, resolve Resolver) ([]*Record, error) {
	var out []*Record
	off := 0
	for off < len(data) {
		h, _, err := ParseHeader(data[off:])
		if err != nil {
			return nil, fmt.Errorf("record %d at offset %d: %w", len(out), off, err)
		}
		end := off + int(h.Size)
		if end > len(data) || end < off {
			return nil, &TruncatedStreamError{Offset: off, Need: int(h.Size), Have: len(data) - off}
		}
		payload := data[off+HeaderSize : end : end]

		content, err := Dispatch(h, payload, f.Product)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s) at offset %d: %w", len(out), h.Class, off, err)
		}
		if m, ok := content.(*MPHR); ok && f.Product == nil && resolve != nil {
			p, err := resolve(m, f.Source)
			if err != nil {
				return nil, err
			}
			f.Product = p
		}
		out = append(out, &Record{Header: h, Content: content, Index: len(out), Offset: off, payload: payload})
		off = end
	}
	return out, nil
}

func hasBodyRecords(body []*Record) bool {
	for _, r := range body {
		if r.Header.Class == ClassMDR {
			return true
		}
	}
	return false
}

func findAuxiliary(prefix []*Record, want AuxSpec) (*Record, error) {
	limit := want.Max
	if limit <= 0 {
		limit = 1
	}
	var (
		found *Record
		n     int
	)
	for _, r := range prefix {
		if want.matches(r.Header) {
			if found == nil {
				found = r
			}
			n++
		}
	}
	if found == nil {
		return nil, &MissingAuxiliaryStateError{Class: want.Class, Subclass: want.Subclass}
	}
	if n > limit {
		return nil, fmt.Errorf("%w: %d %s subclass %d records, at most %d", ErrDuplicateAuxiliary, n, want.Class, want.Subclass, limit)
	}
	return found, nil
}

// decodeBody runs the second pass. Each slot is written by exactly one
// worker; diagnostics are returned in body order.
func (f *File) decodeBody(body []*Record, workers int, source string) []Diagnostic {
	slots := make([]*Diagnostic, len(body))
	decode := func(i int) {
		r := body[i]
		if r.Header.Class != ClassMDR {
			return
		}
		reason := f.Product.Check(r.Header)
		if reason == "" {
			c, err := f.Product.DecodeBody(r.Header, r.payload, f.aux.Content)
			if err == nil {
				r.Content = c
				return
			}
			reason = err.Error()
		}
		slots[i] = &Diagnostic{
			Relative: i,
			Absolute: r.Index,
			Version:  r.Header.Version,
			Size:     r.Header.Size,
			Source:   source,
			Reason:   reason,
		}
		r.Header = r.Header.WithClass(ClassMalformed)
		r.Content = Placeholder{Reason: reason}
	}

	if workers < 2 {
		for i := range body {
			decode(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for i := range body {
			g.Go(func() error {
				decode(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var diags []Diagnostic
	for _, d := range slots {
		if d != nil {
			diags = append(diags, *d)
		}
	}
	return diags
}

// Len is the number of records: the header prefix plus the selected body.
func (f *File) Len() int { return len(f.records) }

// Size is the byte length of the assembled stream.
func (f *File) Size() int64 { return f.size }

// Record returns the i-th record of the assembled file.
func (f *File) Record(i int) (*Record, error) {
	if i < 0 || i >= len(f.records) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrRecordNotFound, i, len(f.records))
	}
	return f.records[i], nil
}

func (f *File) Records() []*Record { return f.records }

// Header returns the header-prefix records.
func (f *File) Header() []*Record { return f.records[:f.prefix] }

// Body returns the selected body records in stream order.
func (f *File) Body() []*Record { return f.records[f.prefix:] }

// Find returns the first header-prefix record of the class.
func (f *File) Find(class RecordClass) (*Record, bool) {
	for _, r := range f.Header() {
		if r.Header.Class == class {
			return r, true
		}
	}
	return nil, false
}

// FindSubclass returns the first header-prefix record matching class and subclass.
func (f *File) FindSubclass(class RecordClass, subclass uint8) (*Record, bool) {
	for _, r := range f.Header() {
		if r.Header.Class == class && r.Header.Subclass == subclass {
			return r, true
		}
	}
	return nil, false
}

func (f *File) MPHR() (*MPHR, error) {
	r, ok := f.Find(ClassMPHR)
	if !ok {
		return nil, fmt.Errorf("%w: MPHR", ErrRecordNotFound)
	}
	m, ok := r.Content.(*MPHR)
	if !ok {
		return nil, fmt.Errorf("%w: MPHR not decoded", ErrRecordNotFound)
	}
	return m, nil
}

// Auxiliary returns the record body decoding used, or nil when the file has
// no body records.
func (f *File) Auxiliary() *Record { return f.aux }

// MalformedCount is the number of body records refused by the second pass.
func (f *File) MalformedCount() int { return f.malformed }

// Decoded returns the decoded body contents, skipping malformed records.
func (f *File) Decoded() []*Decoded {
	var out []*Decoded
	for _, r := range f.Body() {
		if d, ok := r.Decoded(); ok {
			out = append(out, d)
		}
	}
	return out
}

// TimeRange returns the earliest and latest observation time of a body
// record, preferring decoded times over the record header span.
func (f *File) TimeRange(r *Record) (time.Time, time.Time) {
	if t, ok := f.Product.(Timed); ok && r.Content != nil {
		if start, stop, ok := t.BodyTimes(r.Content); ok {
			return start, stop
		}
	}
	return r.TimeRange()
}

// Close releases the arena. Records must not be used afterwards.
func (f *File) Close() error {
	var err error
	for _, c := range f.closers {
		err = multierr.Append(err, c())
	}
	f.closers = nil
	return err
}
