package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/popsync/internal/api"
	"github.com/andresuchdata/popsync/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func runServe(c *cli.Context) error {
	cfg := configFrom(c)

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Ingest and report share one store so the memory driver works here too.
	store, err := newStorage(cfg)
	if err != nil {
		return err
	}
	reportCache := newReportCache(cfg)
	job, closeFn := newReportJob(c.Context, cfg, store, reportCache)
	defer closeFn()

	router := api.NewRouter(&api.Services{
		Ingester: newIngestService(cfg, store, reportCache),
		Reporter: job,
	}, cfg.Server.AllowedOrigins)

	port := cfg.Server.Port
	if p := c.String("port"); p != "" {
		port = p
	}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.Info().Str("port", port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info().Msg("Shutting down server...")

		// Give in-flight jobs 5 seconds to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Log.Info().Msg("Server exiting")
	return nil
}
