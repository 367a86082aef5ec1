package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/internal/api"
	"github.com/samcharles93/hisread/internal/logger"
	"github.com/samcharles93/hisread/internal/preview"
	"github.com/samcharles93/hisread/pkg/his"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		scale       float64
		reduceCount int
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve stacks, frames and reductions over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.FloatFlag{
				Name:        "scale",
				Usage:       "default preview resize factor",
				Value:       1,
				Destination: &scale,
			},
			&cli.IntFlag{
				Name:        "count",
				Usage:       "default number of frames sampled by reductions",
				Value:       10,
				Destination: &reduceCount,
			},
			&cli.IntFlag{
				Name:        "quick-step",
				Usage:       "initial forward jump of the quick header check",
				Value:       his.DefaultQuickStep,
				Destination: &quickStep,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, appConfig, &addr)
			applyPreviewConfig(cmd, appConfig, &scale)
			applyReduceConfig(cmd, appConfig, &reduceCount)
			applyStackConfig(cmd, appConfig)
			if err := (preview.Options{Scale: scale}).Validate(); err != nil {
				return cli.Exit(fmt.Sprintf("error: --scale: %v", err), 1)
			}

			store := api.NewStackStore(
				his.WithLogger(log.WithGroup("his")),
				his.WithQuickStep(quickStep),
			)
			defer func() { _ = store.Close() }()
			server := api.NewServer(store, api.Config{
				PreviewScale: scale,
				ReduceCount:  reduceCount,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
