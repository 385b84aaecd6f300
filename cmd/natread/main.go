package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/natread/internal/logger"
	"github.com/samcharles93/natread/internal/version"
	"github.com/samcharles93/natread/pkg/iasi"
	"github.com/samcharles93/natread/pkg/nat"
)

type configKey struct{}

func configFrom(ctx context.Context) Config {
	cfg, _ := ctx.Value(configKey{}).(Config)
	return cfg
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "natread",
		Usage:   "Read, inspect, split and export EUMETSAT IASI native files",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "config file", Value: configPath()},
			&cli.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)", Value: "info"},
			&cli.StringFlag{Name: "log-format", Usage: "log format (pretty, json)", Value: "pretty"},
			&cli.BoolFlag{Name: "debug", Usage: "shorthand for --log-level=debug"},
		},
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inspectCmd(),
			recordsCmd(),
			recordCmd(),
			splitCmd(),
			exportCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}

// setup loads the config file and installs the logger on the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	level := overlay(cmd, "log-level", cfg.LogLevel)
	if cmd.Bool("debug") {
		level = "debug"
	}
	w := cmd.Root().ErrWriter
	if w == nil {
		w = os.Stderr
	}
	log, err := logger.Setup(w, overlay(cmd, "log-format", cfg.LogFormat), level)
	if err != nil {
		return ctx, err
	}
	ctx = logger.WithContext(ctx, log)
	return context.WithValue(ctx, configKey{}, cfg), nil
}

func decodeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "product", Aliases: []string{"p"}, Usage: "product driver (auto, l1c, l2, pcs, pcr)", Value: "auto"},
		&cli.StringFlag{Name: "records", Aliases: []string{"r"}, Usage: `body records to decode ("3", "0,2,4", "10:20", "10:")`},
		&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "parallel body decoders", Value: runtime.GOMAXPROCS(0)},
	}
}

// openNat opens path with the decode flags of cmd. Anomalous body records
// are logged at WARN.
func openNat(ctx context.Context, cmd *cli.Command, path string) (*nat.File, error) {
	cfg := configFrom(ctx)
	product, err := iasi.ByName(overlay(cmd, "product", cfg.Product))
	if err != nil {
		return nil, err
	}
	sel, err := nat.ParseSelection(cmd.String("records"))
	if err != nil {
		return nil, err
	}
	opts := iasi.Options(product)
	opts.Selection = sel
	opts.Workers = cfg.workers(cmd)
	opts.Source = path
	opts.Diagnostics = logger.DiagnosticSink(logger.FromContext(ctx))
	return nat.Open(path, opts)
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
