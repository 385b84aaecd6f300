package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/samcharles93/natread/internal/export"
	"github.com/samcharles93/natread/internal/logger"
	"github.com/samcharles93/natread/pkg/iasi"
)

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Flatten sounder pixels of one or more files into Parquet or JSON Lines",
		ArgsUsage: "FILE...",
		Flags: append(decodeFlags(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: `output file ("-" for stdout)`, Required: true},
			&cli.StringFlag{Name: "format", Usage: "parquet or jsonl (default: from the output extension)"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			log := logger.FromContext(ctx)
			if cmd.NArg() == 0 {
				return fmt.Errorf("export: missing FILE argument")
			}
			out := cmd.String("out")
			format, err := export.ParseFormat(overlay(cmd, "format", configFrom(ctx).ExportFormat), out)
			if err != nil {
				return err
			}

			var (
				w      export.RowWriter
				closed bool
			)
			if out == "-" {
				if w, err = export.NewRowWriter(stdout(cmd), format); err != nil {
					return err
				}
			} else {
				var fw *export.FileWriter
				if fw, err = export.Create(out, format); err != nil {
					return err
				}
				defer func() {
					if err != nil && !closed {
						err = multierr.Append(err, fw.Abort())
					}
				}()
				w = fw
			}

			total := 0
			for _, path := range cmd.Args().Slice() {
				n, err := exportOne(ctx, cmd, w, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				log.Debug("exported", "file", path, "rows", n)
				total += n
			}
			closed = true
			if err := w.Close(); err != nil {
				return err
			}
			log.Info("export complete", "files", cmd.NArg(), "rows", total, "format", string(format), "out", out)
			return nil
		},
	}
}

func exportOne(ctx context.Context, cmd *cli.Command, w export.RowWriter, path string) (int, error) {
	f, err := openNat(ctx, cmd, path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	rows, err := iasi.Observations(f)
	if err != nil {
		return 0, err
	}
	return len(rows), w.Write(rows)
}
