package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"

	"github.com/flavioribeiro/h264viewer/internal/entities"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewHTTPServer(
	c *entities.Config,
	mux *http.ServeMux,
	log *zap.SugaredLogger,
	lc fx.Lifecycle,
) *http.Server {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort),
		Handler: mux,
	}
	// net/http/pprof registers on the default mux
	pprof := &http.Server{
		Addr:    fmt.Sprintf(":%d", c.PproffHTTPPort),
		Handler: http.DefaultServeMux,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Infow(fmt.Sprintf("Starting HTTP server. Open http://%s to inspect a stream", srv.Addr),
				"addr", srv.Addr,
				"maxUploadSize", c.MaxUploadSizeBytes,
			)

			go serve(log, "profiling", func() error { return pprof.ListenAndServe() })
			go serve(log, "http", func() error { return srv.Serve(ln) })
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := pprof.Shutdown(ctx); err != nil {
				log.Errorw("error while stopping the profiling server",
					"error", err,
				)
			}
			return srv.Shutdown(ctx)
		},
	})
	return srv
}

func serve(log *zap.SugaredLogger, name string, run func() error) {
	if err := run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorw("server has stopped",
			"server", name,
			"error", err,
		)
	}
}
