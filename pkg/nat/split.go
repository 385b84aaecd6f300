package nat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// DefaultSplitTemplate names outputs by their position.
const DefaultSplitTemplate = "split_$F"

// StampLayout is the compact UTC stamp substituted for $SD and $ED.
const StampLayout = "20060102150405Z"

// Part is one output of a split: the full header prefix followed by a run
// of body records.
type Part struct {
	Index int
	Name  string
	Start time.Time
	Stop  time.Time
	Size  int64

	prefix []*Record
	body   []*Record
}

func (p *Part) Header() []*Record { return p.prefix }

func (p *Part) Body() []*Record { return p.body }

// WriteTo writes the part as a self-contained native stream.
func (p *Part) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, recs := range [][]*Record{p.prefix, p.body} {
		for _, r := range recs {
			n, err := r.WriteTo(w)
			total += n
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// ExpandTemplate substitutes $F, $SD and $ED in a split name template.
func ExpandTemplate(template string, index int, start, stop time.Time) string {
	r := strings.NewReplacer(
		"$F", strconv.Itoa(index),
		"$SD", start.UTC().Format(StampLayout),
		"$ED", stop.UTC().Format(StampLayout),
	)
	return r.Replace(template)
}

// Plan partitions f into parts no larger than threshold bytes without
// writing anything. Every part repeats the header prefix. Part names must
// be distinct.
func Plan(f *File, threshold int64, template string) ([]*Part, error) {
	if template == "" {
		template = DefaultSplitTemplate
	}
	prefix, body := f.Header(), f.Body()

	var prefixSize, largest int64
	for _, r := range prefix {
		prefixSize += int64(r.Size())
	}
	for _, r := range body {
		largest = max(largest, int64(r.Size()))
	}
	if required := prefixSize + largest; threshold < required {
		return nil, &ThresholdTooSmallError{Threshold: threshold, Required: required}
	}

	var parts []*Part
	cur := &Part{prefix: prefix, Size: prefixSize}
	flush := func() {
		if cur.Start.IsZero() {
			cur.Start, cur.Stop = prefixSpan(prefix)
		}
		cur.Index = len(parts)
		cur.Name = ExpandTemplate(template, cur.Index, cur.Start, cur.Stop)
		parts = append(parts, cur)
	}
	for _, r := range body {
		if len(cur.body) > 0 && cur.Size+int64(r.Size()) > threshold {
			flush()
			cur = &Part{prefix: prefix, Size: prefixSize}
		}
		start, stop := f.TimeRange(r)
		if cur.Start.IsZero() || start.Before(cur.Start) {
			cur.Start = start
		}
		if stop.After(cur.Stop) {
			cur.Stop = stop
		}
		cur.body = append(cur.body, r)
		cur.Size += int64(r.Size())
	}
	flush()

	seen := make(map[string]int, len(parts))
	for _, p := range parts {
		if prev, ok := seen[p.Name]; ok {
			return nil, fmt.Errorf("%w: parts %d and %d are both named %q", ErrDuplicatePartName, prev, p.Index, p.Name)
		}
		seen[p.Name] = p.Index
	}
	return parts, nil
}

func prefixSpan(prefix []*Record) (time.Time, time.Time) {
	if len(prefix) == 0 {
		return Epoch, Epoch
	}
	return prefix[0].TimeRange()
}

// Split plans f and writes every part into dir. Each part is written to a
// temporary file first and renamed once complete.
func Split(f *File, threshold int64, template, dir string) ([]*Part, error) {
	parts, err := Plan(f, threshold, template)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		if err := writePart(p, dir); err != nil {
			return nil, err
		}
	}
	return parts, nil
}

func writePart(p *Part, dir string) (err error) {
	tmp, err := os.CreateTemp(dir, ".natsplit-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmp.Name()))
		}
	}()

	w := bufio.NewWriterSize(tmp, 1<<20)
	if _, err = p.WriteTo(w); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err = w.Flush(); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, p.Name))
}
