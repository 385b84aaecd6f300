package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/natread/internal/export"
	"github.com/samcharles93/natread/pkg/nat"
)

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func argPath(cmd *cli.Command) (string, error) {
	if cmd.NArg() < 1 {
		return "", fmt.Errorf("%s: missing FILE argument", cmd.Name)
	}
	return cmd.Args().First(), nil
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"}
}

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarize a native file and its main product header",
		ArgsUsage: "FILE",
		Flags:     append(decodeFlags(), jsonFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := argPath(cmd)
			if err != nil {
				return err
			}
			f, err := openNat(ctx, cmd, path)
			if err != nil {
				return err
			}
			defer f.Close()

			s := export.Summarize(f)
			w := stdout(cmd)
			if cmd.Bool("json") {
				return writeJSON(w, s)
			}
			printSummary(w, s)
			return nil
		},
	}
}

func printSummary(w io.Writer, s export.FileSummary) {
	_, _ = fmt.Fprintf(w, "source:   %s\n", s.Source)
	if s.Product != "" {
		_, _ = fmt.Fprintf(w, "product:  %s\n", s.Product)
	}
	_, _ = fmt.Fprintf(w, "size:     %s\n", humanize.Bytes(uint64(s.Size)))
	_, _ = fmt.Fprintf(w, "records:  %d (%d header, %d body, %d malformed)\n", s.Records, s.Header, s.Body, s.Malformed)
	if s.Start != nil {
		_, _ = fmt.Fprintf(w, "sensing:  %s .. %s\n", s.Start.Format(time.RFC3339Nano), s.Stop.Format(time.RFC3339Nano))
	}
	if len(s.MPHR) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w)
	t := newTable(w, "KEY", "VALUE", "MEANING")
	for _, p := range s.MPHR {
		meaning := s.Describe[p.Key]
		if meaning == p.Value {
			meaning = ""
		}
		t.Append([]string{p.Key, p.Value, meaning})
	}
	t.Render()
}

func recordsCmd() *cli.Command {
	return &cli.Command{
		Name:      "records",
		Usage:     "List the records of a native file",
		ArgsUsage: "FILE",
		Flags: append(decodeFlags(), jsonFlag(),
			&cli.StringFlag{Name: "class", Usage: "only list records of this class (MPHR, GIADR, MDR, MDR(bad), ...)"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := argPath(cmd)
			if err != nil {
				return err
			}
			f, err := openNat(ctx, cmd, path)
			if err != nil {
				return err
			}
			defer f.Close()

			rows := export.Rows(f)
			if name := cmd.String("class"); name != "" {
				class, ok := nat.ParseRecordClass(name)
				if !ok {
					return fmt.Errorf("unknown record class %q", name)
				}
				kept := rows[:0]
				for _, r := range rows {
					if r.Class == class.String() {
						kept = append(kept, r)
					}
				}
				rows = kept
			}

			w := stdout(cmd)
			if cmd.Bool("json") {
				return writeJSON(w, rows)
			}
			t := newTable(w, "#", "OFFSET", "CLASS", "SUB", "VER", "SIZE", "START", "CONTENT")
			for _, r := range rows {
				t.Append([]string{
					strconv.Itoa(r.Index),
					strconv.Itoa(r.Offset),
					r.Class,
					strconv.Itoa(int(r.Subclass)),
					strconv.Itoa(int(r.Version)),
					humanize.Bytes(uint64(r.Size)),
					r.Start.Format(time.RFC3339),
					r.Content,
				})
			}
			t.Render()
			return nil
		},
	}
}

func recordCmd() *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "Print one record with its decoded fields",
		ArgsUsage: "FILE INDEX",
		Flags: append(decodeFlags(), jsonFlag(),
			&cli.StringFlag{Name: "field", Aliases: []string{"f"}, Usage: "only print this field"},
			&cli.IntFlag{Name: "preview", Usage: "elements shown per field", Value: 6},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 2 {
				return fmt.Errorf("record: expected FILE INDEX")
			}
			index, err := strconv.Atoi(cmd.Args().Get(1))
			if err != nil {
				return fmt.Errorf("record: invalid index %q", cmd.Args().Get(1))
			}
			f, err := openNat(ctx, cmd, cmd.Args().First())
			if err != nil {
				return err
			}
			defer f.Close()

			r, err := f.Record(index)
			if err != nil {
				return err
			}
			d := export.Detail(f, r)
			if name := cmd.String("field"); name != "" {
				var kept []export.Field
				for _, fv := range d.Fields {
					if fv.Name == name {
						kept = append(kept, fv)
					}
				}
				if len(kept) == 0 {
					return fmt.Errorf("%w: %s", nat.ErrFieldNotFound, name)
				}
				d.Fields = kept
			}

			w := stdout(cmd)
			if cmd.Bool("json") {
				return writeJSON(w, d)
			}
			printDetail(w, d, int(cmd.Int("preview")))
			return nil
		},
	}
}

func printDetail(w io.Writer, d export.RecordDetail, preview int) {
	_, _ = fmt.Fprintf(w, "record %d: %s subclass=%d version=%d size=%d offset=%d (%s)\n",
		d.Index, d.Class, d.Subclass, d.Version, d.Size, d.Offset, d.Content)
	_, _ = fmt.Fprintf(w, "sensing: %s .. %s\n", d.Start.Format(time.RFC3339Nano), d.Stop.Format(time.RFC3339Nano))
	if d.Reason != "" {
		_, _ = fmt.Fprintf(w, "reason: %s\n", d.Reason)
	}
	if d.Schema != "" {
		_, _ = fmt.Fprintf(w, "schema: %s\n", d.Schema)
	}
	if len(d.MPHR) > 0 {
		t := newTable(w, "KEY", "VALUE")
		for _, p := range d.MPHR {
			t.Append([]string{p.Key, p.Value})
		}
		t.Render()
	}
	if len(d.Fields) == 0 {
		return
	}
	t := newTable(w, "FIELD", "TYPE", "SHAPE", "VALUES")
	for _, fv := range d.Fields {
		t.Append([]string{fv.Name, fv.Type, shapeString(fv.Shape), previewValues(fv, preview)})
	}
	t.Render()
}

func shapeString(shape []int) string {
	if len(shape) == 0 {
		return "scalar"
	}
	dims := make([]string, len(shape))
	for i, n := range shape {
		dims[i] = strconv.Itoa(n)
	}
	return strings.Join(dims, "x")
}

func previewValues(fv export.Field, n int) string {
	var items []string
	total := 0
	switch {
	case fv.Times != nil:
		total = len(fv.Times)
		for _, t := range fv.Times[:min(n, total)] {
			items = append(items, t.Format(time.RFC3339Nano))
		}
	case fv.Bits != nil:
		total = len(fv.Bits)
		for _, b := range fv.Bits[:min(n, total)] {
			items = append(items, fmt.Sprintf("%+v", b))
		}
	default:
		total = len(fv.Values)
		for _, v := range fv.Values[:min(n, total)] {
			if v == nil {
				items = append(items, "missing")
				continue
			}
			items = append(items, strconv.FormatFloat(*v, 'g', -1, 64))
		}
	}
	s := strings.Join(items, " ")
	if total > n {
		s += fmt.Sprintf(" ... (%d)", total)
	}
	return s
}
