package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/callbacks"

	"github.com/tbxark/appraisalagent/app"
	"github.com/tbxark/appraisalagent/config"
	"github.com/tbxark/appraisalagent/logger"
	"github.com/tbxark/appraisalagent/observability"
	"github.com/tbxark/appraisalagent/server"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("run server: %v", err)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg, err := logger.New(logger.Options{Mode: cfg.Log.Mode, Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer lg.Sync()

	shutdownTracing, err := observability.Setup(ctx, lg, observability.Options{
		ServiceName: "appraisal-server",
		Enabled:     cfg.Tracing.Enabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			lg.Warn("tracing shutdown failed", "error", err)
		}
	}()

	callbacks.AppendGlobalHandlers(app.LogCallbacks(lg.With("component", "callbacks")))

	a, err := app.New(ctx, cfg, nil, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			lg.Warn("close resources failed", "error", err)
		}
	}()

	router := server.NewRouter(a.Flow, lg.With("component", "http"), server.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Services: server.Services{
			Recommender: a.Recommender,
			FactorRater: a.FactorRater,
			Suggester:   a.Suggester,
		},
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", "addr", cfg.Server.Addr, "session_store", cfg.Session.Store)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
