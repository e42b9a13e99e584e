package chunk

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"quickshare/internal/domain/identity"
	"quickshare/internal/domain/quota"
	"quickshare/internal/storage"
)

// Quota is the slice of the quota tracker the chunk store needs: Check covers
// both the monthly batch allowance and the per-file byte ceiling the declared
// total size is held against.
type Quota interface {
	Check(ctx context.Context, id identity.Identity) (quota.Status, error)
}

type AppendRequest struct {
	UploadID  string
	Filename  string
	TotalSize int64
	Offset    int64
	Chunk     []byte
	Identity  identity.Identity
}

type Progress struct {
	Status   string `json:"status"`
	Progress int64  `json:"progress"`
}

// Service tracks partial uploads and appends byte ranges to their temp files.
// Writes are positional, so retried or reordered chunks do not corrupt the
// file as long as ranges do not overlap inconsistently.
type Service struct {
	repo   Repository
	store  *storage.Store
	quotas Quota
	log    *logrus.Logger
}

func NewService(repo Repository, store *storage.Store, quotas Quota, log *logrus.Logger) *Service {
	return &Service{repo: repo, store: store, quotas: quotas, log: log}
}

// Append writes one chunk at the declared byte position and advances the
// durable offset. The first chunk for an upload id creates the tracking
// record; subsequent chunks reuse it regardless of their order of arrival.
func (s *Service) Append(ctx context.Context, req AppendRequest) (Progress, error) {
	if req.UploadID == "" || req.Filename == "" {
		return Progress{}, ErrInvalidRequest
	}
	if req.TotalSize <= 0 {
		return Progress{}, ErrInvalidSize
	}
	if req.Offset < 0 || req.Offset+int64(len(req.Chunk)) > req.TotalSize {
		return Progress{}, ErrInvalidOffset
	}

	status, err := s.quotas.Check(ctx, req.Identity)
	if err != nil {
		return Progress{}, fmt.Errorf("quota check failed: %w", err)
	}
	if !status.Allowed {
		return Progress{}, quota.ErrQuotaExceeded
	}
	if req.TotalSize > status.ByteCeiling {
		return Progress{}, ErrFileTooLarge
	}

	upload, err := s.repo.GetByUploadID(ctx, req.UploadID)
	if errors.Is(err, ErrUploadNotFound) {
		upload = &ChunkedUpload{
			UploadID:  req.UploadID,
			OwnerID:   req.Identity.UserID,
			Filename:  req.Filename,
			TotalSize: req.TotalSize,
			TempPath:  s.store.TempPath(req.UploadID),
		}
		if err := s.repo.Create(ctx, upload); err != nil {
			return Progress{}, fmt.Errorf("failed to create upload record: %w", err)
		}
	} else if err != nil {
		return Progress{}, fmt.Errorf("failed to load upload record: %w", err)
	}

	if err := s.store.WriteChunk(req.UploadID, req.Offset, req.Chunk); err != nil {
		s.log.WithError(err).WithField("upload_id", req.UploadID).Error("chunk write failed")
		return Progress{}, ErrStorage
	}

	upload.Offset = req.Offset + int64(len(req.Chunk))
	if err := s.repo.Save(ctx, upload); err != nil {
		return Progress{}, fmt.Errorf("failed to update upload offset: %w", err)
	}

	return Progress{Status: "continue", Progress: upload.Offset}, nil
}
