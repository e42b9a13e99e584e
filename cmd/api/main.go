package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"quickshare/internal/config"
	"quickshare/internal/database"
	"quickshare/internal/domain/access"
	"quickshare/internal/domain/batch"
	"quickshare/internal/domain/chunk"
	"quickshare/internal/domain/download"
	"quickshare/internal/domain/feedback"
	"quickshare/internal/domain/quota"
	"quickshare/internal/domain/retention"
	"quickshare/internal/middleware"
	jwtsvc "quickshare/internal/pkg/jwt"
	"quickshare/internal/queue"
	"quickshare/internal/storage"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := db.AutoMigrate(
		&chunk.ChunkedUpload{},
		&batch.Batch{},
		&batch.SharedFile{},
		&feedback.Feedback{},
	); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("storage init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Attempt counters live in Redis when it is reachable; otherwise they
	// fall back to process memory, which is fine for a single instance.
	var attempts access.AttemptStore
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unavailable, using in-memory attempt store")
		attempts = access.NewMemoryAttemptStore()
	} else {
		attempts = access.NewRedisAttemptStore(rdb)
	}

	tokens := jwtsvc.New(cfg.JWTSecret, cfg.AccessTTL, cfg.UnlockTTL)

	chunkRepo := chunk.NewRepository(db)
	batchRepo := batch.NewRepository(db)
	feedbackRepo := feedback.NewRepository(db)

	quotas := quota.New(batchRepo, quota.Limits{
		UserMaxBatches:  cfg.UserMaxBatches,
		GuestMaxBatches: cfg.GuestMaxBatches,
		UserMaxBytes:    cfg.UserMaxBytes,
		GuestMaxBytes:   cfg.GuestMaxBytes,
	})

	jobs := queue.New(cfg.QueueSize, cfg.QueueWorkers, log)
	jobs.Start(ctx)

	encryptor := batch.NewEncryptor(batchRepo, chunkRepo, store, log)
	batchService := batch.NewService(
		batchRepo,
		quotas,
		jobs,
		encryptor,
		store,
		cfg.BaseURL,
		batch.RetentionPolicy{
			Admin: cfg.AdminRetention,
			User:  cfg.UserRetention,
			Guest: cfg.GuestRetention,
		},
		cfg.ShortCodeRetries,
		log,
	)

	chunkService := chunk.NewService(chunkRepo, store, quotas, log)
	accessService := access.NewService(batchRepo, attempts, tokens, cfg.AttemptLimit, cfg.AttemptWindow, log)
	downloadService := download.NewService(batchRepo, accessService, store, log)
	feedbackService := feedback.NewService(feedbackRepo)

	reaper := retention.NewService(batchRepo, chunkRepo, store, cfg.UploadTTL, log)
	go reaper.Run(ctx, cfg.SweepInterval)

	r := gin.New()
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS())

	root := r.Group("/")
	root.Use(middleware.OptionalAuth(tokens))
	{
		chunk.RegisterRoutes(root, chunk.NewHandler(chunkService))
		access.RegisterRoutes(root, access.NewHandler(accessService))
		download.RegisterRoutes(root, download.NewHandler(downloadService))
		feedback.RegisterRoutes(root, feedback.NewHandler(feedbackService))

		protected := root.Group("/")
		protected.Use(middleware.RequireAuth(tokens))
		batch.RegisterRoutes(root, protected, batch.NewHandler(batchService), batch.NewWSHandler(batchService, log))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
	jobs.Stop()
}
