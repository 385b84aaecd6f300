package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/natread/internal/api"
	"github.com/samcharles93/natread/internal/logger"
	"github.com/samcharles93/natread/internal/metrics"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve uploaded native files over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address", Value: "127.0.0.1:8080"},
			&cli.DurationFlag{Name: "read-timeout", Usage: "read header timeout", Value: 30 * time.Second},
			&cli.StringFlag{Name: "max-upload", Usage: "largest accepted upload", Value: "2GB"},
			&cli.StringFlag{Name: "threshold", Usage: "default split threshold", Value: defaultSplitThreshold},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "parallel body decoders per upload", Value: 4},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFrom(ctx)

			maxUpload, err := parseSize("max-upload", overlay(cmd, "max-upload", cfg.MaxUpload))
			if err != nil {
				return err
			}
			threshold, err := parseSize("threshold", overlay(cmd, "threshold", cfg.SplitThreshold))
			if err != nil {
				return err
			}
			addr := overlay(cmd, "addr", cfg.ServerAddress)

			store := api.NewFileStore()
			defer store.Close()
			server := api.NewServer(store, metrics.New(), log, api.Config{
				Workers:        cfg.workers(cmd),
				MaxUpload:      maxUpload,
				SplitThreshold: threshold,
				SplitTemplate:  cfg.SplitTemplate,
			})

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = cmd.Duration("read-timeout")
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
