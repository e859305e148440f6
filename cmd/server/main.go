package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal/common/clock"
	"github.com/scythe504/sketchoff-backend/internal/config"
	"github.com/scythe504/sketchoff-backend/internal/game"
	"github.com/scythe504/sketchoff-backend/internal/logger"
	"github.com/scythe504/sketchoff-backend/internal/pubsub"
	"github.com/scythe504/sketchoff-backend/internal/scoring"
	"github.com/scythe504/sketchoff-backend/internal/server"
	"github.com/scythe504/sketchoff-backend/internal/storage"
	"github.com/scythe504/sketchoff-backend/internal/utils"
	"github.com/scythe504/sketchoff-backend/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sketchoff: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("app starting...", zap.String("app name", cfg.App.Name), zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.New()
	hub := websocket.NewHub(log)

	var broadcaster game.Broadcaster = hub
	busErr := make(chan error, 1)
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis at %s: %w", cfg.Redis.Addr, err)
		}

		bus, err := pubsub.New(&pubsub.Config{RedisClient: rdb, Hub: hub, Logger: log})
		if err != nil {
			return err
		}
		go func() { busErr <- bus.Run(ctx) }()
		broadcaster = bus
		log.Info("redis room bus enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var archive game.ResultArchive
	var results server.Results
	if cfg.ArchiveEnabled() {
		store, err := storage.NewResultStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		archive, results = store, store
		log.Info("results archive enabled")
	}

	scorer, err := scoring.New(&scoring.Config{
		BaseURL: cfg.Scoring.AIServiceURL,
		Timeout: cfg.Scoring.Timeout,
		Logger:  log,
	})
	if err != nil {
		return err
	}
	if !scorer.Configured() {
		log.Warn("AI_SERVICE_URL not set, drawings get offline scores")
	}

	var topics []string
	if cfg.Rooms.TopicsFile != "" {
		if topics, err = utils.ReadTopicsCSV(cfg.Rooms.TopicsFile); err != nil {
			return err
		}
		log.Info("loaded custom topics", zap.String("file", cfg.Rooms.TopicsFile), zap.Int("count", len(topics)))
	}

	service, err := game.New(&game.Config{
		Registry:      game.NewRegistry(clk),
		Scorer:        scorer,
		Broadcaster:   broadcaster,
		Archive:       archive,
		Clock:         clk,
		Logger:        log,
		IdleTTL:       cfg.Rooms.IdleTTL,
		SweepInterval: cfg.Rooms.SweepInterval,
		Topics:        topics,
	})
	if err != nil {
		return err
	}
	go service.Run(ctx)

	gateway, err := websocket.NewGateway(&websocket.Config{Hub: hub, Service: service, Logger: log})
	if err != nil {
		return err
	}

	srv, err := server.NewServer(&server.Config{
		Addr:    cfg.Addr(),
		Rooms:   service,
		Results: results,
		Gateway: gateway,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case err := <-busErr:
		if err != nil {
			return fmt.Errorf("redis room bus: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
