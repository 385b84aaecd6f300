package nat

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func testStream(bodies func(*streamBuilder)) []byte {
	b := new(streamBuilder).
		mphr("PRODUCT_NAME = TEST", "TOTAL_MPHR = 1", "TOTAL_SPHR = 0").
		record(ClassIPR, 0, 1, DatePair{}, make([]byte, 7)).
		aux(2)
	bodies(b)
	return b.bytes()
}

func TestAssembleDecodesBody(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) {
		b.body(2, at(0), 10, 20).body(2, at(1), 30, 0xffff)
	})
	f, err := Assemble(data, Options{Product: testProduct{}, Source: "mem"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if f.Len() != 5 || len(f.Header()) != 3 || len(f.Body()) != 2 {
		t.Fatalf("layout: len=%d header=%d body=%d", f.Len(), len(f.Header()), len(f.Body()))
	}
	if f.Size() != int64(len(data)) {
		t.Fatalf("size: got %d want %d", f.Size(), len(data))
	}
	m, err := f.MPHR()
	if err != nil || m.ProductName() != "TEST" {
		t.Fatalf("MPHR: %v %v", m, err)
	}
	if aux, ok := f.Auxiliary().Decoded(); !ok || aux.Int("N") != 2 {
		t.Fatalf("aux not decoded: %#v", f.Auxiliary().Content)
	}

	decoded := f.Decoded()
	if len(decoded) != 2 {
		t.Fatalf("decoded: got %d want 2", len(decoded))
	}
	v, _ := decoded[0].Get("VALUES")
	if diff := cmp.Diff([]float64{1, 2}, v.Floats()); diff != "" {
		t.Fatalf("values (-want +got):\n%s", diff)
	}
	v, _ = decoded[1].Get("VALUES")
	if v.Num[0] != 3 || !math.IsNaN(v.Num[1]) {
		t.Fatalf("second record values: %v", v.Num)
	}

	start, stop := f.TimeRange(f.Body()[1])
	if !start.Equal(at(1)) || !stop.Equal(at(1)) {
		t.Fatalf("time range: got %v..%v", start, stop)
	}
	if f.MalformedCount() != 0 {
		t.Fatalf("malformed: got %d", f.MalformedCount())
	}
}

func TestAssembleAnomalyIsolation(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) {
		b.body(2, at(0), 1, 1).body(3, at(1), 2, 2).body(2, at(2), 3, 3)
	})
	var diags []Diagnostic
	f, err := Assemble(data, Options{
		Product:     testProduct{},
		Source:      "anomaly.nat",
		Diagnostics: func(d Diagnostic) { diags = append(diags, d) },
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	body := f.Body()
	if body[0].Malformed() || !body[1].Malformed() || body[2].Malformed() {
		t.Fatalf("malformed flags: %v %v %v", body[0].Malformed(), body[1].Malformed(), body[2].Malformed())
	}
	if body[1].Class() != ClassMalformed {
		t.Fatalf("class: got %s want %s", body[1].Class(), ClassMalformed)
	}
	if _, ok := body[1].Content.(Placeholder); !ok {
		t.Fatalf("content: got %T want Placeholder", body[1].Content)
	}
	if body[1].Raw()[0] != byte(ClassMDR) {
		t.Fatalf("on-disk class byte changed")
	}
	if f.MalformedCount() != 1 || len(f.Decoded()) != 2 {
		t.Fatalf("counts: malformed=%d decoded=%d", f.MalformedCount(), len(f.Decoded()))
	}

	want := []Diagnostic{{
		Relative: 1,
		Absolute: 4,
		Version:  3,
		Size:     31,
		Source:   "anomaly.nat",
		Reason:   "unsupported subclass version 3",
	}}
	if diff := cmp.Diff(want, diags); diff != "" {
		t.Fatalf("diagnostics (-want +got):\n%s", diff)
	}
	if s := diags[0].String(); !strings.Contains(s, "1 (rel) 4 (abs)") {
		t.Fatalf("diagnostic text: %q", s)
	}
}

func TestAssembleDecodeErrorMarksMalformed(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) {
		b.body(2, at(0), 1, 1)
		// a version-2 record too short for two values
		b.record(ClassMDR, 2, 2, DatePairOf(at(1)), []byte{0, 0, 1})
	})
	var diags []Diagnostic
	f, err := Assemble(data, Options{Product: testProduct{}, Diagnostics: func(d Diagnostic) { diags = append(diags, d) }})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !f.Body()[1].Malformed() || len(diags) != 1 {
		t.Fatalf("truncated body: malformed=%v diags=%d", f.Body()[1].Malformed(), len(diags))
	}
	if !strings.Contains(diags[0].Reason, "body.VALUES") {
		t.Fatalf("reason should name the field: %q", diags[0].Reason)
	}
}

func TestAssembleMissingAuxiliary(t *testing.T) {
	t.Parallel()

	data := new(streamBuilder).
		mphr("TOTAL_MPHR = 1").
		body(2, at(0), 1).
		bytes()
	_, err := Assemble(data, Options{Product: testProduct{}})
	var ma *MissingAuxiliaryStateError
	if !errors.As(err, &ma) || !errors.Is(err, ErrMissingAuxiliary) {
		t.Fatalf("got %v want MissingAuxiliaryStateError", err)
	}
	if ma.Class != ClassGIADR || ma.Subclass != 1 {
		t.Fatalf("detail: got %+v", ma)
	}
}

func TestAssembleDuplicateAuxiliary(t *testing.T) {
	t.Parallel()

	data := new(streamBuilder).
		mphr("TOTAL_MPHR = 1").
		aux(1).aux(1).
		body(2, at(0), 1).
		bytes()
	if _, err := Assemble(data, Options{Product: testProduct{}}); !errors.Is(err, ErrDuplicateAuxiliary) {
		t.Fatalf("got %v want ErrDuplicateAuxiliary", err)
	}
}

func TestAssembleHeaderOnly(t *testing.T) {
	t.Parallel()

	data := new(streamBuilder).mphr("TOTAL_MPHR = 1").bytes()
	f, err := Assemble(data, Options{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if f.Len() != 1 || len(f.Body()) != 0 || f.Auxiliary() != nil {
		t.Fatalf("header-only: len=%d body=%d", f.Len(), len(f.Body()))
	}
}

func TestAssembleNoProduct(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) { b.body(2, at(0), 1, 1) })
	if _, err := Assemble(data, Options{}); !errors.Is(err, ErrNoProduct) {
		t.Fatalf("got %v want ErrNoProduct", err)
	}
}

func TestAssembleResolver(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) { b.body(2, at(0), 4, 5) })
	var seen string
	f, err := Assemble(data, Options{
		Source: "resolved.nat",
		Resolve: func(m *MPHR, source string) (Product, error) {
			seen = m.ProductName() + "@" + source
			return testProduct{}, nil
		},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if seen != "TEST@resolved.nat" || f.Product.Name() != "test" {
		t.Fatalf("resolver: seen %q product %v", seen, f.Product)
	}
	if len(f.Decoded()) != 1 {
		t.Fatalf("decoded: got %d", len(f.Decoded()))
	}
}

func TestAssembleAuxiliaryBeforeMPHR(t *testing.T) {
	t.Parallel()

	data := new(streamBuilder).
		aux(2).
		mphr("PRODUCT_NAME = TEST").
		body(2, at(0), 1, 2).
		bytes()
	resolve := func(*MPHR, string) (Product, error) { return testProduct{}, nil }
	_, err := Assemble(data, Options{Resolve: resolve})
	if !errors.Is(err, ErrUndecodedAuxiliary) || !strings.Contains(err.Error(), "record 0") {
		t.Fatalf("got %v want ErrUndecodedAuxiliary for record 0", err)
	}

	// A product known up front decodes the GIADR wherever it sits.
	f, err := Assemble(data, Options{Product: testProduct{}})
	if err != nil {
		t.Fatalf("Assemble with product: %v", err)
	}
	if len(f.Decoded()) != 1 || f.MalformedCount() != 0 {
		t.Fatalf("decoded=%d malformed=%d", len(f.Decoded()), f.MalformedCount())
	}
}

func TestAssembleSelection(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) {
		for i := 0; i < 5; i++ {
			b.body(2, at(i), uint16(i), uint16(i))
		}
	})
	f, err := Assemble(data, Options{Product: testProduct{}, Selection: Indices(0, 2)})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	body := f.Body()
	if len(body) != 2 || body[0].Index != 3 || body[1].Index != 5 {
		t.Fatalf("selected: %d records", len(body))
	}
	v, _ := f.Decoded()[1].Get("VALUES")
	if v.Num[0] != 0.2 {
		t.Fatalf("second selected value: got %v want 0.2", v.Num[0])
	}
	for _, r := range body {
		if r.Pending() {
			t.Fatalf("record %d left pending", r.Index)
		}
	}

	if _, err := Assemble(data, Options{Product: testProduct{}, Selection: Index(7)}); !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("Index(7): got %v", err)
	}
}

func TestAssembleTruncatedStream(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) { b.body(2, at(0), 1, 1) })
	_, err := Assemble(data[:len(data)-4], Options{Product: testProduct{}})
	var ts *TruncatedStreamError
	if !errors.As(err, &ts) || !errors.Is(err, ErrTruncatedStream) {
		t.Fatalf("got %v want TruncatedStreamError", err)
	}
	if ts.Need != 31 || ts.Have != 27 {
		t.Fatalf("detail: got %+v", ts)
	}

	_, err = Assemble(append(data, 1, 2, 3), Options{Product: testProduct{}})
	if !errors.Is(err, ErrTruncatedHeader) {
		t.Fatalf("trailing bytes: got %v want ErrTruncatedHeader", err)
	}
}

func TestAssembleWorkersMatchSequential(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) {
		for i := 0; i < 40; i++ {
			version := uint8(2)
			if i%7 == 3 {
				version = 4
			}
			b.body(version, at(i), uint16(i), uint16(2*i))
		}
	})
	collect := func(workers int) ([]Diagnostic, []float64) {
		var diags []Diagnostic
		f, err := Assemble(data, Options{
			Product:     testProduct{},
			Workers:     workers,
			Diagnostics: func(d Diagnostic) { diags = append(diags, d) },
		})
		if err != nil {
			t.Fatalf("Assemble(workers=%d): %v", workers, err)
		}
		var vals []float64
		for _, d := range f.Decoded() {
			v, _ := d.Get("VALUES")
			vals = append(vals, v.Floats()...)
		}
		return diags, vals
	}
	seqDiags, seqVals := collect(1)
	parDiags, parVals := collect(8)
	if len(seqDiags) != 6 {
		t.Fatalf("sequential diagnostics: got %d want 6", len(seqDiags))
	}
	if diff := cmp.Diff(seqDiags, parDiags); diff != "" {
		t.Fatalf("diagnostics differ (-seq +par):\n%s", diff)
	}
	if diff := cmp.Diff(seqVals, parVals); diff != "" {
		t.Fatalf("values differ (-seq +par):\n%s", diff)
	}
}

func TestRecordWriteToPreservesBytes(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) {
		b.body(2, at(0), 1, 1).body(9, at(1), 2, 2)
	})
	f, err := Assemble(data, Options{Product: testProduct{}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	var buf bytes.Buffer
	for _, r := range f.Records() {
		if _, err := r.WriteTo(&buf); err != nil {
			t.Fatalf("WriteTo: %v", err)
		}
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatalf("re-serialised stream differs from input")
	}
}

func TestOpenFile(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) { b.body(2, at(0), 1, 1) })
	path := filepath.Join(t.TempDir(), "in.nat")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := Open(path, Options{Product: testProduct{}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.Source != path || len(f.Decoded()) != 1 {
		t.Fatalf("open: source=%q decoded=%d", f.Source, len(f.Decoded()))
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.nat")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	g, err := Open(empty, Options{})
	if err != nil || g.Len() != 0 {
		t.Fatalf("empty file: len=%v err=%v", g, err)
	}
}

func TestOpenCompressed(t *testing.T) {
	t.Parallel()

	data := testStream(func(b *streamBuilder) { b.body(2, at(0), 1, 1).body(2, at(1), 2, 2) })

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	zs := enc.EncodeAll(data, nil)
	_ = enc.Close()

	dir := t.TempDir()
	for name, payload := range map[string][]byte{"in.nat.gz": gz.Bytes(), "in.nat.zst": zs} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		f, err := Open(path, Options{Product: testProduct{}})
		if err != nil {
			t.Fatalf("Open %s: %v", name, err)
		}
		if f.Size() != int64(len(data)) || len(f.Decoded()) != 2 {
			t.Fatalf("%s: size=%d decoded=%d", name, f.Size(), len(f.Decoded()))
		}
		_ = f.Close()
	}

	f, err := OpenReader(bytes.NewReader(gz.Bytes()), Options{Product: testProduct{}})
	if err != nil || len(f.Body()) != 2 {
		t.Fatalf("OpenReader: %v", err)
	}
}
