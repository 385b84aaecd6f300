package nat

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type selectionKind uint8

const (
	selectAll selectionKind = iota
	selectIndex
	selectIndices
	selectRange
)

// Selection filters body records by position. The zero value keeps every record.
type Selection struct {
	kind    selectionKind
	indices []int
	lo, hi  int
}

// All keeps every body record.
func All() Selection { return Selection{} }

// Index keeps a single body record. A negative position counts from the
// end; a position outside the body is an error.
func Index(i int) Selection { return Selection{kind: selectIndex, lo: i} }

// Indices keeps the listed positions in stream order. Positions follow the
// rules of Index.
func Indices(ix ...int) Selection {
	return Selection{kind: selectIndices, indices: slices.Clone(ix)}
}

// Range keeps positions in [lo, hi). A negative lo counts from the end and
// a negative hi runs to the end. Bounds beyond the body are clipped, so a
// range never fails.
func Range(lo, hi int) Selection { return Selection{kind: selectRange, lo: lo, hi: hi} }

func (s Selection) IsAll() bool { return s.kind == selectAll }

func (s Selection) String() string {
	switch s.kind {
	case selectIndex:
		return fmt.Sprintf("[%d]", s.lo)
	case selectIndices:
		return fmt.Sprint(s.indices)
	case selectRange:
		if s.hi < 0 {
			return fmt.Sprintf("[%d:]", s.lo)
		}
		return fmt.Sprintf("[%d:%d]", s.lo, s.hi)
	default:
		return "[:]"
	}
}

func (s Selection) apply(body []*Record) ([]*Record, error) {
	switch s.kind {
	case selectIndex:
		i, err := position(s.lo, len(body))
		if err != nil {
			return nil, err
		}
		return []*Record{body[i]}, nil
	case selectIndices:
		keep := make([]bool, len(body))
		for _, ix := range s.indices {
			i, err := position(ix, len(body))
			if err != nil {
				return nil, err
			}
			keep[i] = true
		}
		out := make([]*Record, 0, len(s.indices))
		for i, r := range body {
			if keep[i] {
				out = append(out, r)
			}
		}
		return out, nil
	case selectRange:
		lo, hi := s.lo, s.hi
		if hi < 0 || hi > len(body) {
			hi = len(body)
		}
		if lo < 0 {
			lo = max(lo+len(body), 0)
		}
		if lo >= hi {
			return []*Record{}, nil
		}
		return body[lo:hi:hi], nil
	default:
		return body, nil
	}
}

func position(i, n int) (int, error) {
	p := i
	if p < 0 {
		p += n
	}
	if p < 0 || p >= n {
		return 0, fmt.Errorf("%w: index %d of %d body records", ErrInvalidSelection, i, n)
	}
	return p, nil
}

// ParseSelection reads the textual forms "3", "0,2,4", "10:20" and "10:".
// An empty string selects everything.
func ParseSelection(s string) (Selection, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == ":" {
		return All(), nil
	}
	if lo, hi, ok := strings.Cut(s, ":"); ok {
		start, end := 0, -1
		var err error
		if lo = strings.TrimSpace(lo); lo != "" {
			if start, err = strconv.Atoi(lo); err != nil {
				return Selection{}, fmt.Errorf("%w: %q", ErrInvalidSelection, s)
			}
		}
		if hi = strings.TrimSpace(hi); hi != "" {
			if end, err = strconv.Atoi(hi); err != nil || end < 0 {
				return Selection{}, fmt.Errorf("%w: %q", ErrInvalidSelection, s)
			}
		}
		return Range(start, end), nil
	}
	parts := strings.Split(s, ",")
	ix := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Selection{}, fmt.Errorf("%w: %q", ErrInvalidSelection, s)
		}
		ix = append(ix, n)
	}
	if len(ix) == 1 {
		return Index(ix[0]), nil
	}
	return Indices(ix...), nil
}
