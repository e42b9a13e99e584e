package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"quickshare/internal/config"
	"quickshare/internal/database"
	"quickshare/internal/domain/batch"
	"quickshare/internal/domain/chunk"
	"quickshare/internal/domain/retention"
	"quickshare/internal/storage"
)

// One-shot retention sweep for cron setups where the API server's own ticker
// is disabled or as a manual cleanup tool.
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

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("storage init failed")
	}

	reaper := retention.NewService(
		batch.NewRepository(db),
		chunk.NewRepository(db),
		store,
		cfg.UploadTTL,
		log,
	)

	report, err := reaper.Sweep(context.Background())
	if err != nil {
		log.WithError(err).Fatal("sweep failed")
	}

	log.WithFields(logrus.Fields{
		"batches_removed": report.BatchesRemoved,
		"files_removed":   report.FilesRemoved,
		"uploads_removed": report.UploadsRemoved,
		"skipped":         report.Skipped,
	}).Info("sweep completed")
}
