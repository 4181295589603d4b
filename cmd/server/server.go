package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"glowchat/internal/config"
	"glowchat/internal/infrastructure/crontab"
	"glowchat/internal/infrastructure/logger"
	"glowchat/internal/infrastructure/observability"
	"glowchat/internal/infrastructure/ratelimit"
	"glowchat/internal/interfaces/httpserver"

	_ "net/http/pprof"
)

type Application struct {
	httpServer  *httpserver.HTTPServer
	crontab     *crontab.Crontab
	rateLimiter *ratelimit.Limiter
	config      *config.Config
}

func init() {
	logger.GetLogger()
}

func (application *Application) Start() {
	background := context.Background()
	ctx, cancel := context.WithCancel(background)
	defer cancel()
	defer application.rateLimiter.Stop()

	var eg errgroup.Group
	eg.Go(func() error {
		err := http.ListenAndServe("0.0.0.0:6060", nil)
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		err := http.ListenAndServe(fmt.Sprintf(":%d", application.config.MetricsPort), mux)
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		err := application.crontab.Run(ctx)
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		err := application.httpServer.Run()
		if err != nil {
			cancel()
		}
		return err
	})

	if err := eg.Wait(); err != nil {
		panic(err)
	}
}

func main() {
	ctx := context.Background()

	application, err := CreateApplication()
	if err != nil {
		log := logger.GetLogger()
		log.Fatal().Err(err).Msg("create application")
	}

	cfg := application.config
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.GetLogger()

	otelShutdown, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown telemetry")
			}
		}()
	}

	application.Start()
}
