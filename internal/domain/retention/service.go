package retention

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"quickshare/internal/domain/batch"
	"quickshare/internal/domain/chunk"
	"quickshare/internal/storage"
)

// Report summarizes one sweep. Skipped counts rows that stayed behind
// because a database delete failed; missing blobs are not failures.
type Report struct {
	BatchesRemoved int
	FilesRemoved   int
	UploadsRemoved int
	Skipped        int
}

// Service reclaims expired batches and orphaned partial uploads. Blobs are
// removed first, best effort, then the rows; a blob that fails to delete
// never blocks the row delete, so a retry can finish the job later.
type Service struct {
	batches   batch.Repository
	uploads   chunk.Repository
	store     *storage.Store
	uploadTTL time.Duration
	log       *logrus.Logger
}

func NewService(
	batches batch.Repository,
	uploads chunk.Repository,
	store *storage.Store,
	uploadTTL time.Duration,
	log *logrus.Logger,
) *Service {
	return &Service{
		batches:   batches,
		uploads:   uploads,
		store:     store,
		uploadTTL: uploadTTL,
		log:       log,
	}
}

// Sweep removes every expired batch with its blobs and every chunked upload
// that went stale without being finalized.
func (s *Service) Sweep(ctx context.Context) (Report, error) {
	var report Report
	now := time.Now()

	expired, err := s.batches.ListExpired(ctx, now)
	if err != nil {
		return report, err
	}

	for i := range expired {
		b := &expired[i]
		for j := range b.Files {
			f := &b.Files[j]
			if err := s.store.Remove(f.StoragePath); err != nil {
				s.log.WithError(err).WithField("file_id", f.ID).Error("failed to remove blob")
				continue
			}
			report.FilesRemoved++
		}
		if err := s.batches.Delete(ctx, b.ID); err != nil {
			s.log.WithError(err).WithField("batch_id", b.ID).Error("failed to delete expired batch")
			report.Skipped++
			continue
		}
		report.BatchesRemoved++
	}

	stale, err := s.uploads.ListStale(ctx, now.Add(-s.uploadTTL))
	if err != nil {
		return report, err
	}

	for i := range stale {
		u := &stale[i]
		if err := s.store.RemoveTemp(u.UploadID); err != nil {
			s.log.WithError(err).WithField("upload_id", u.UploadID).Error("failed to remove temp file")
		}
		if err := s.uploads.DeleteByUploadID(ctx, u.UploadID); err != nil {
			s.log.WithError(err).WithField("upload_id", u.UploadID).Error("failed to delete stale upload")
			report.Skipped++
			continue
		}
		report.UploadsRemoved++
	}

	s.log.WithFields(logrus.Fields{
		"batches_removed": report.BatchesRemoved,
		"files_removed":   report.FilesRemoved,
		"uploads_removed": report.UploadsRemoved,
		"skipped":         report.Skipped,
	}).Info("retention sweep finished")

	return report, nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.WithError(err).Error("retention sweep failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
