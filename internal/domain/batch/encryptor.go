package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"quickshare/internal/domain/chunk"
	"quickshare/internal/pkg/cryptox"
	"quickshare/internal/queue"
	"quickshare/internal/storage"
)

// ResolvedUpload is the (upload id, display name) pair captured inside the
// finalize transaction. The encryption job works only on this snapshot.
type ResolvedUpload struct {
	UploadID     string
	Name         string
	RelativePath string
}

// Encryptor seals the temp files of a finalized batch. It is the consumer
// side of the work queue: jobs may be delivered more than once, so every
// step is idempotent — files already stored for an (batch, upload) pair are
// skipped.
type Encryptor struct {
	repo   Repository
	chunks chunk.Repository
	store  *storage.Store
	log    *logrus.Logger
}

func NewEncryptor(repo Repository, chunks chunk.Repository, store *storage.Store, log *logrus.Logger) *Encryptor {
	return &Encryptor{repo: repo, chunks: chunks, store: store, log: log}
}

// Task builds the queue task for one batch.
func (e *Encryptor) Task(batchID uint64, items []ResolvedUpload) queue.Task {
	return &encryptTask{enc: e, batchID: batchID, items: items}
}

type encryptTask struct {
	enc     *Encryptor
	batchID uint64
	items   []ResolvedUpload
}

func (t *encryptTask) Name() string {
	return fmt.Sprintf("encrypt-batch-%d", t.batchID)
}

func (t *encryptTask) Run(ctx context.Context) error {
	return t.enc.Process(ctx, t.batchID, t.items)
}

// Process encrypts every resolved upload of a batch. Per-file failures are
// logged and collected in a manifest instead of aborting the whole job; the
// manifest makes partial results observable rather than silent.
func (e *Encryptor) Process(ctx context.Context, batchID uint64, items []ResolvedUpload) error {
	b, err := e.repo.GetByID(ctx, batchID)
	if errors.Is(err, ErrBatchNotFound) {
		// Deleted (or reaped) before the job ran; nothing to do.
		e.log.WithField("batch_id", batchID).Warn("encrypt job for missing batch")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}

	var skipped []string
	for _, item := range items {
		if err := e.processOne(ctx, b, item); err != nil {
			e.log.WithError(err).
				WithField("batch_id", batchID).
				WithField("upload_id", item.UploadID).
				Error("failed to encrypt upload")
			skipped = append(skipped, item.UploadID)
		}
	}

	if len(skipped) > 0 {
		e.log.WithField("batch_id", batchID).
			WithField("skipped", skipped).
			Warn("batch encrypted with skipped uploads")
	}
	return nil
}

func (e *Encryptor) processOne(ctx context.Context, b *Batch, item ResolvedUpload) error {
	exists, err := e.repo.FileExistsForUpload(ctx, b.ID, item.UploadID)
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if exists {
		return nil
	}

	plaintext, err := e.store.ReadTemp(item.UploadID)
	if err != nil {
		return fmt.Errorf("failed to read temp file: %w", err)
	}

	contentHash := cryptox.HashHex(plaintext)
	ciphertext, err := cryptox.Encrypt(b.EncryptionKey, plaintext)
	if err != nil {
		return fmt.Errorf("encryption failed: %w", err)
	}

	relPath, err := e.store.SaveEncrypted(filepath.Base(item.UploadID)+".enc", ciphertext)
	if err != nil {
		return fmt.Errorf("failed to store ciphertext: %w", err)
	}

	file := &SharedFile{
		BatchID:      b.ID,
		UploadID:     item.UploadID,
		StoragePath:  relPath,
		OriginalName: item.Name,
		RelativePath: item.RelativePath,
		FileSize:     int64(len(ciphertext)),
		ContentHash:  contentHash,
	}
	if err := e.repo.CreateFile(ctx, file); err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}

	// Temp artifacts are gone once the ciphertext is durable.
	if err := e.store.RemoveTemp(item.UploadID); err != nil {
		e.log.WithError(err).WithField("upload_id", item.UploadID).Warn("failed to remove temp file")
	}
	if err := e.chunks.DeleteByUploadID(ctx, item.UploadID); err != nil {
		e.log.WithError(err).WithField("upload_id", item.UploadID).Warn("failed to remove upload record")
	}
	return nil
}
