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
	"github.com/adjsky/evil-cards-sub000/internal/directory"
	"github.com/adjsky/evil-cards-sub000/internal/fleet"
	"github.com/adjsky/evil-cards-sub000/internal/router"
)

func main() {
	cfg := config.Load()

	log := buildLogger(cfg.Debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("parsing redis url", zap.Error(err))
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatal("directory store unreachable", zap.Error(err))
	}

	dir := directory.New(rdb, directory.DefaultTTL, log)

	var disc fleet.Discoverer
	if cfg.FleetLabel != "" {
		disc, err = fleet.NewDockerDiscoverer(cfg.FleetLabel)
		if err != nil {
			log.Fatal("docker discovery unavailable", zap.Error(err))
		}
	} else {
		static := make(fleet.StaticDiscoverer, 0, len(cfg.FleetStatic))
		for _, host := range cfg.FleetStatic {
			static = append(static, fleet.Instance{Host: host})
		}
		disc = static
	}
	sel := fleet.NewSelector(disc, log)
	if err := sel.Refresh(ctx); err != nil {
		log.Warn("initial fleet refresh failed", zap.Error(err))
	}

	rt := router.New(dir, sel, log)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: rt.Routes(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sel.Run(gctx, cfg.FleetRefresh)
		return nil
	})
	g.Go(func() error {
		rt.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("router exited", zap.Error(err))
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
