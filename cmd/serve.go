package main

import (
	"context"
	"strings"

	"github.com/desertthunder/tagalbum/internal/server"
	"github.com/desertthunder/tagalbum/internal/shared"
	"github.com/urfave/cli/v3"
)

// router builds the API routes with logging and recovery middleware.
//
// Stored media is served under media.base_url when it is a local path.
func (r *Runner) router() (*server.BasicRouter, error) {
	albums, err := r.openStore()
	if err != nil {
		return nil, err
	}
	engine, err := r.syncEngine()
	if err != nil {
		return nil, err
	}

	router := server.NewBasicRouter()
	router.Use(server.Recovery(r.logger), server.Logging(r.logger))
	router.Handler(server.NewAlbumHandler(server.AlbumHandlerOpts{
		Engine:   engine,
		Albums:   albums,
		Lock:     r.syncLock(),
		UseBlobs: r.useBlobs(),
		Logger:   r.logger,
	}))

	if base := r.config.Media.BaseURL; r.useBlobs() && strings.HasPrefix(base, "/") {
		router.Static(base, r.config.Media.Dir)
	}
	return router, nil
}

// Serve runs the JSON API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		cfg.Port = port
	}

	router, err := r.router()
	if err != nil {
		return err
	}

	srv := server.NewServer(cfg.Addr(), router, shared.WithLogger(r.logger, "component", "server"))
	return srv.ListenAndServe(ctx)
}
