package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"pickup/internal/attendance"
	"pickup/internal/config"
	"pickup/internal/logging"
	"pickup/internal/notify"
	"pickup/internal/observability"
	"pickup/internal/queue"
	"pickup/internal/store"
)

// Worker consumes departure events from redis and texts guardians.
func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Printf("invalid configuration: %v", err)
		return 2
	}
	logs, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Printf("logger init failed: %v", err)
		return 1
	}
	defer logs.Closer()
	logger := logs.Base.Named("worker")

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	if cfg.QueueBackend != "redis" {
		logger.Error("the worker needs QUEUE_BACKEND=redis; the memory queue is consumed inside the API process",
			zap.String("queue", cfg.QueueBackend))
		return 2
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", zap.Error(err))
		return 1
	}
	defer db.Close()

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()
	if !rdb.Healthy(ctx) {
		logger.Warn("redis not reachable at startup, consumer will keep retrying", zap.String("addr", cfg.RedisAddr))
	}

	sms := notify.New(cfg.SMSBaseURL, cfg.SMSUsername, cfg.SMSAPIKey, cfg.SMSSender, cfg.SMSSkip)
	if cfg.SMSSkip {
		logger.Info("SMS_SKIP set, guardian messages are not delivered")
	}
	w := notify.NewWorker(
		queue.NewRedisQueue(rdb.Client, ""),
		attendance.NewRepository(db.Client),
		sms,
		cfg.SchoolName,
		cfg.Location,
		logger,
	)
	if err := w.Run(ctx); err != nil {
		logger.Error("worker failed", zap.Error(err))
		return 1
	}
	return 0
}
