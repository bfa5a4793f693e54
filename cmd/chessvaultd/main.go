package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gambitworks/chessvault/internal/archive"
	"github.com/gambitworks/chessvault/internal/config"
	"github.com/gambitworks/chessvault/internal/domain"
	"github.com/gambitworks/chessvault/internal/engine"
	"github.com/gambitworks/chessvault/internal/events"
	"github.com/gambitworks/chessvault/internal/gateway"
	"github.com/gambitworks/chessvault/internal/ledger"
	"github.com/gambitworks/chessvault/internal/obslog"
	"github.com/gambitworks/chessvault/internal/rating"
	"github.com/gambitworks/chessvault/internal/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis url invalid", zap.Error(err))
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		logger.Fatal("redis unreachable", zap.Error(err))
	}
	cancelPing()

	emit := events.NewEmitter(logger)
	emit.AttachStream(rdb)

	// block height: a logical clock advanced on a fixed tick
	var height atomic.Uint64
	height.Store(1)

	eng := engine.New(
		registry.New(rdb),
		ledger.NewEscrow(ledger.NewRedisLedger(rdb), domain.AccountID(cfg.CustodyAccount)),
		rating.NewRedisStore(rdb),
		emit,
		engine.Config{
			Periods:        cfg.Periods(),
			IncentiveShare: cfg.IncentiveShare,
			EloK:           cfg.EloK,
			EloInitial:     cfg.EloInitial,
		},
		func() domain.BlockNumber { return domain.BlockNumber(height.Load()) },
	)

	if cfg.DatabaseURL != "" {
		pg, err := archive.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive init failed", zap.Error(err))
		}
		defer pg.Close()
		schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pg.EnsureSchema(schemaCtx); err != nil {
			cancelSchema()
			logger.Fatal("archive schema failed", zap.Error(err))
		}
		cancelSchema()
		eng.AttachArchive(pg)
		logger.Info("archive attached")
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WebhookURL != "" {
		sink, err := events.NewWebhookSink(cfg.WebhookURL, logger)
		if err != nil {
			logger.Fatal("webhook init failed", zap.Error(err))
		}
		ch, unsub := emit.Subscribe(256)
		defer unsub()
		go sink.Run(rootCtx, ch)
		logger.Info("event webhook attached", zap.String("url", cfg.WebhookURL))
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.BlockInterval.Std()),
		gocron.NewTask(func() {
			height.Add(1)
			if cfg.SweepEnabled {
				sweepCtx, done := context.WithTimeout(rootCtx, cfg.BlockInterval.Std())
				eng.Sweep(sweepCtx)
				done()
			}
		}),
	)
	if err != nil {
		logger.Fatal("block tick job failed", zap.Error(err))
	}
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      gateway.New(eng, emit).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	cancel()
	_ = rdb.Close()
}
