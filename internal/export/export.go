// Package export writes flattened sounder observations as Parquet or JSON
// Lines, and renders files and records into JSON-friendly summaries.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/segmentio/parquet-go"
	"go.uber.org/multierr"

	"github.com/samcharles93/natread/pkg/iasi"
)

type Format string

const (
	Parquet Format = "parquet"
	JSONL   Format = "jsonl"
)

// ParseFormat accepts a format name. An empty name selects the format
// from the extension of path, defaulting to Parquet.
func ParseFormat(name, path string) (Format, error) {
	if name == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jsonl", ".ndjson", ".json":
			return JSONL, nil
		}
		return Parquet, nil
	}
	switch f := Format(strings.ToLower(name)); f {
	case Parquet, JSONL:
		return f, nil
	case "ndjson":
		return JSONL, nil
	}
	return "", fmt.Errorf("unknown export format %q", name)
}

// RowWriter receives observation batches. Close flushes buffered output
// but does not close the underlying writer.
type RowWriter interface {
	Write(rows []iasi.Observation) error
	Close() error
}

func NewRowWriter(w io.Writer, f Format) (RowWriter, error) {
	switch f {
	case Parquet:
		return &parquetWriter{w: parquet.NewGenericWriter[iasi.Observation](w, parquet.Compression(&parquet.Zstd))}, nil
	case JSONL:
		bw := bufio.NewWriter(w)
		return &jsonlWriter{bw: bw, enc: json.NewEncoder(bw)}, nil
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

type parquetWriter struct {
	w *parquet.GenericWriter[iasi.Observation]
}

func (p *parquetWriter) Write(rows []iasi.Observation) error {
	_, err := p.w.Write(rows)
	return err
}

func (p *parquetWriter) Close() error { return p.w.Close() }

type jsonlWriter struct {
	bw  *bufio.Writer
	enc *json.Encoder
}

func (j *jsonlWriter) Write(rows []iasi.Observation) error {
	for i := range rows {
		if err := j.enc.Encode(&rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func (j *jsonlWriter) Close() error { return j.bw.Flush() }

// FileWriter writes rows to a temporary file beside its target and
// renames it into place on Close.
type FileWriter struct {
	RowWriter
	tmp  *os.File
	path string
}

func Create(path string, f Format) (*FileWriter, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".natexport-*")
	if err != nil {
		return nil, err
	}
	rw, err := NewRowWriter(tmp, f)
	if err != nil {
		return nil, multierr.Combine(err, tmp.Close(), os.Remove(tmp.Name()))
	}
	return &FileWriter{RowWriter: rw, tmp: tmp, path: path}, nil
}

func (w *FileWriter) Close() error {
	err := multierr.Combine(w.RowWriter.Close(), w.tmp.Close())
	if err == nil {
		err = os.Rename(w.tmp.Name(), w.path)
	}
	if err != nil {
		_ = os.Remove(w.tmp.Name())
		return fmt.Errorf("export %s: %w", w.path, err)
	}
	return nil
}

// Abort discards everything written so far.
func (w *FileWriter) Abort() error {
	return multierr.Combine(w.tmp.Close(), os.Remove(w.tmp.Name()))
}

// WriteFile writes rows to path, replacing it only once the export is
// complete.
func WriteFile(path string, f Format, rows []iasi.Observation) error {
	w, err := Create(path, f)
	if err != nil {
		return err
	}
	if err := w.Write(rows); err != nil {
		return multierr.Append(err, w.Abort())
	}
	return w.Close()
}
