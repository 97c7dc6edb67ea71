package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/urfave/cli/v3"

	"peinspect/config"
	"peinspect/logger"
	"peinspect/web"
)

func serveCmd(st *appState) *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		history     int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the upload page and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       config.DefaultAddress,
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "history",
				Usage:       "number of analyses kept for /api/analyses/:id",
				Value:       100,
				Destination: &history,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			srv := st.cfg.Server

			if srv.Address != "" && !cmd.IsSet("addr") {
				addr = srv.Address
			}
			if !cmd.IsSet("read-timeout") {
				d, err := srv.Timeout()
				if err != nil {
					return err
				}
				readTimeout = d
			}
			if !cmd.IsSet("history") {
				history = int64(srv.HistorySize)
			}

			e := web.New(web.Options{
				MaxFileSize: st.cfg.MaxFileSize,
				HistorySize: int(history),
				Logger:      log,
			})
			log.Info("starting server", "address", addr, "max_file_size", st.cfg.MaxFileSize)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(s *http.Server) error {
					s.ReadTimeout = readTimeout
					s.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
