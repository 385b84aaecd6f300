package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli/v3"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil || !cmp.Equal(cfg, Config{}) {
		t.Fatalf("missing file: got %+v, %v", cfg, err)
	}

	path := filepath.Join(dir, "config.yaml")
	data := "product: pcs\nworkers: 3\nsplit_threshold: 20MB\nlog_format: json\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Product != "pcs" || cfg.Workers == nil || *cfg.Workers != 3 || cfg.SplitThreshold != "20MB" || cfg.LogFormat != "json" {
		t.Fatalf("config: %+v", cfg)
	}

	if err := os.WriteFile(path, []byte("max_upload: lots\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("bad size: expected error")
	}
	if err := os.WriteFile(path, []byte("product: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("bad yaml: expected error")
	}
}

func TestOverlay(t *testing.T) {
	t.Parallel()

	three := 3
	cfg := Config{Product: "pcs", Workers: &three}
	run := func(args ...string) (string, int) {
		var product string
		var workers int
		c := &cli.Command{
			Name: "t",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "product", Value: "auto"},
				&cli.IntFlag{Name: "workers", Value: 8},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				product = overlay(cmd, "product", cfg.Product)
				workers = cfg.workers(cmd)
				return nil
			},
		}
		if err := c.Run(context.Background(), append([]string{"t"}, args...)); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return product, workers
	}

	if p, w := run(); p != "pcs" || w != 3 {
		t.Fatalf("config defaults: got %q %d", p, w)
	}
	if p, w := run("--product", "l1c", "--workers", "1"); p != "l1c" || w != 1 {
		t.Fatalf("explicit flags: got %q %d", p, w)
	}
}
