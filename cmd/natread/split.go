package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/natread/internal/logger"
	"github.com/samcharles93/natread/pkg/nat"
)

const defaultSplitThreshold = "50MB"

func splitCmd() *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "Split a native file into self-contained parts no larger than a threshold",
		ArgsUsage: "FILE",
		Flags: append(decodeFlags(),
			&cli.StringFlag{Name: "threshold", Aliases: []string{"t"}, Usage: "maximum part size", Value: defaultSplitThreshold},
			&cli.StringFlag{Name: "template", Usage: "part name template ($F index, $SD start, $ED end)", Value: nat.DefaultSplitTemplate},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory", Value: "."},
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "plan the parts without writing them"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFrom(ctx)
			path, err := argPath(cmd)
			if err != nil {
				return err
			}
			threshold, err := parseSize("threshold", overlay(cmd, "threshold", cfg.SplitThreshold))
			if err != nil {
				return err
			}
			template := overlay(cmd, "template", cfg.SplitTemplate)
			dir := cmd.String("out")

			f, err := openNat(ctx, cmd, path)
			if err != nil {
				return err
			}
			defer f.Close()

			var parts []*nat.Part
			if cmd.Bool("dry-run") {
				parts, err = nat.Plan(f, threshold, template)
			} else {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
				parts, err = nat.Split(f, threshold, template, dir)
			}
			if err != nil {
				return err
			}
			log.Info("split", "file", path, "parts", len(parts), "threshold", humanize.Bytes(uint64(threshold)))

			t := newTable(stdout(cmd), "#", "NAME", "BODY", "SIZE", "START", "STOP")
			for _, p := range parts {
				t.Append([]string{
					strconv.Itoa(p.Index),
					p.Name,
					strconv.Itoa(len(p.Body())),
					humanize.Bytes(uint64(p.Size)),
					p.Start.Format(time.RFC3339),
					p.Stop.Format(time.RFC3339),
				})
			}
			t.Render()
			if f.MalformedCount() > 0 {
				_, _ = fmt.Fprintf(stdout(cmd), "%d malformed body records copied unchanged\n", f.MalformedCount())
			}
			return nil
		},
	}
}
