package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alertd/alertd/internal/api"
	"github.com/alertd/alertd/internal/config"
	"github.com/alertd/alertd/internal/feed"
	"github.com/alertd/alertd/internal/ingest"
	"github.com/alertd/alertd/internal/storage"
	"github.com/alertd/alertd/internal/ws"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := newLogger(cfg.Log.Development)
	defer logger.Sync()

	store, err := storage.New(cfg.Storage.Dir)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}

	fc := feed.NewClient(cfg.Feed.URL, cfg.Feed.APIKey, cfg.FeedTimeout())
	hub := ws.NewHub(logger)
	engine := ingest.NewEngine(store, logger, cfg.DedupWindow(), cfg.RetentionWindow())
	sched := ingest.NewScheduler(fc, engine, hub, logger, cfg.PollInterval(), cfg.SweepInterval())

	handler := api.NewHandler(store, sched, fc, hub, logger)
	router := api.NewRouter(handler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)
	go sched.Run(ctx)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("feed", cfg.Feed.URL),
			zap.Duration("poll", cfg.PollInterval()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func newLogger(development bool) *zap.Logger {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zap.Must(cfg.Build())
	}
	return zap.Must(zap.NewProduction())
}
