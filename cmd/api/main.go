package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickup/internal/api"
	"pickup/internal/attendance"
	"pickup/internal/children"
	"pickup/internal/config"
	"pickup/internal/httpmiddleware"
	"pickup/internal/logging"
	"pickup/internal/notify"
	"pickup/internal/observability"
	"pickup/internal/photos"
	"pickup/internal/queue"
	"pickup/internal/store"
	"pickup/internal/teachers"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred flushes happen before the process exits.
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

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		logs.Base.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logs.Base); err != nil {
		logs.Base.Error("http server failed", zap.Error(err))
		return 1
	}
	return 0
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.MigrateUp(ctx, db.Client); err != nil {
		return err
	}

	var rdb *store.Redis
	if usesRedis(cfg) {
		rdb = store.NewRedis(cfg.RedisAddr)
		defer rdb.Close()
		if !rdb.Healthy(ctx) {
			logger.Warn("redis not reachable at startup", zap.String("addr", cfg.RedisAddr))
		}
	}

	var guard attendance.CapGuard
	switch cfg.CapGuardBackend {
	case "redis":
		guard = attendance.NewRedisGuard(rdb.Client, "")
	case "memory":
		guard = attendance.NewMemoryGuard()
	}

	attRepo := attendance.NewRepository(db.Client)
	rules := attendance.Rules{
		WindowStart: cfg.ScanWindowStart,
		WindowEnd:   cfg.ScanWindowEnd,
		DailyLimit:  cfg.DailyScanLimit,
		Location:    cfg.Location,
		Now:         time.Now,
	}
	att := attendance.NewService(attRepo, guard, rules, logger.Named("attendance"))

	photoStore, uploadsDir, err := photoBackend(cfg, logger)
	if err != nil {
		return err
	}
	kids := children.NewService(children.NewRepository(db.Client), photoStore, cfg.SchoolName, logger.Named("children"))
	staff := teachers.NewService(teachers.NewRepository(db.Client), teachers.TokenConfig{
		Issuer: cfg.JWTIssuer,
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTExpiresIn,
	}, logger.Named("teachers"))

	q := departureQueue(ctx, cfg, rdb, attRepo, logger)

	routerCfg := api.RouterConfig{
		Production:  cfg.IsProduction(),
		CORSOrigins: cfg.CORSOrigin,
		JWTSecret:   cfg.JWTSecret,
		JWTIssuer:   cfg.JWTIssuer,
		WebDir:      cfg.WebDir,
		UploadsDir:  uploadsDir,
		DB:          db,
	}
	if rdb != nil {
		routerCfg.Redis = rdb
	}
	if cfg.RateLimitBackend == "redis" {
		routerCfg.LoginLimiter = httpmiddleware.NewRedisWindow(rdb.Client, "pickup:rl:login", cfg.LoginRateLimit, cfg.RateLimitWindow)
		routerCfg.APILimiter = httpmiddleware.NewRedisWindow(rdb.Client, "pickup:rl:api", cfg.APIRateLimit, cfg.RateLimitWindow)
	} else {
		routerCfg.LoginLimiter = httpmiddleware.NewTokenBucket(cfg.LoginRateLimit, cfg.RateLimitWindow)
		routerCfg.APILimiter = httpmiddleware.NewTokenBucket(cfg.APIRateLimit, cfg.RateLimitWindow)
	}

	h := api.New(att, kids, staff, q, cfg.IsProduction(), logger.Named("api"))
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(h, routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("env", cfg.Env),
			zap.String("queue", cfg.QueueBackend),
			zap.String("cap_guard", cfg.CapGuardBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

// departureQueue picks the notification queue. The memory queue is drained by
// a worker inside this process; a redis queue is drained by cmd/worker.
func departureQueue(ctx context.Context, cfg config.App, rdb *store.Redis, departures notify.Departures, logger *zap.Logger) queue.Queue {
	switch cfg.QueueBackend {
	case "none":
		logger.Info("guardian notifications disabled")
		return queue.Nop{}
	case "redis":
		return queue.NewRedisQueue(rdb.Client, "")
	}
	mem := queue.NewInMemory(256)
	sms := notify.New(cfg.SMSBaseURL, cfg.SMSUsername, cfg.SMSAPIKey, cfg.SMSSender, cfg.SMSSkip)
	w := notify.NewWorker(mem, departures, sms, cfg.SchoolName, cfg.Location, logger.Named("notify"))
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Error("notification worker exited", zap.Error(err))
		}
	}()
	return mem
}

func usesRedis(cfg config.App) bool {
	return cfg.CapGuardBackend == "redis" || cfg.QueueBackend == "redis" || cfg.RateLimitBackend == "redis"
}

// photoBackend returns the picker photo store and, for local storage, the directory to serve.
func photoBackend(cfg config.App, logger *zap.Logger) (photos.Store, string, error) {
	if cfg.PhotoBackend == "cloudinary" {
		if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
			logger.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
			return photos.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder), "", nil
		}
		logger.Warn("cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set), storing photos locally")
	}
	local, err := photos.NewLocalStore(cfg.UploadsDir)
	if err != nil {
		return nil, "", err
	}
	return local, cfg.UploadsDir, nil
}
