package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adjsky/evil-cards-sub000/internal/config"
	"github.com/adjsky/evil-cards-sub000/internal/decks"
	"github.com/adjsky/evil-cards-sub000/internal/directory"
	"github.com/adjsky/evil-cards-sub000/internal/registry"
	"github.com/adjsky/evil-cards-sub000/internal/ws"
)

func main() {
	cfg := config.Load()

	log := buildLogger(cfg.Debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := decks.Load(cfg.DecksFile)
	if err != nil {
		log.Fatal("loading decks", zap.String("path", cfg.DecksFile), zap.Error(err))
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("parsing redis url", zap.Error(err))
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	// The directory store being unreachable at boot is the one fatal
	// condition here; everything later degrades instead.
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatal("directory store unreachable", zap.Error(err))
	}

	dir := directory.New(rdb, directory.DefaultTTL, log)
	reg := registry.New(provider, log)
	controller := ws.NewController(reg, dir, cfg.ServerHost, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: ws.Routes(controller),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("host", cfg.ServerHost))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("draining")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		controller.Drain(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(debug bool) *zap.Logger {
	if debug {
		log, _ := zap.NewDevelopment()
		return log
	}
	log, _ := zap.NewProduction()
	return log
}
