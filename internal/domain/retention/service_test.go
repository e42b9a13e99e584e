package retention

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"quickshare/internal/database"
	"quickshare/internal/domain/batch"
	"quickshare/internal/domain/chunk"
	"quickshare/internal/storage"
)

type testEnv struct {
	service *Service
	batches batch.Repository
	uploads chunk.Repository
	store   *storage.Store
	db      *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&chunk.ChunkedUpload{}, &batch.Batch{}, &batch.SharedFile{}))

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	batches := batch.NewRepository(db)
	uploads := chunk.NewRepository(db)

	return &testEnv{
		service: NewService(batches, uploads, store, 24*time.Hour, log),
		batches: batches,
		uploads: uploads,
		store:   store,
		db:      db,
	}
}

func (env *testEnv) seedBatch(t *testing.T, uuid string, expiresAt time.Time) (*batch.Batch, string) {
	t.Helper()
	ctx := context.Background()

	b := &batch.Batch{
		ShortCode:     uuid[:6],
		URLUUID:       uuid,
		EncryptionKey: []byte("0123456789abcdef0123456789abcdef"),
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	require.NoError(t, env.batches.Create(ctx, b))

	relPath, err := env.store.SaveEncrypted(uuid+".enc", []byte("ciphertext"))
	require.NoError(t, err)
	require.NoError(t, env.batches.CreateFile(ctx, &batch.SharedFile{
		BatchID:     b.ID,
		UploadID:    "up-" + uuid,
		StoragePath: relPath,
	}))

	// ExpiresAt is set directly so the seeded value bypasses service policy.
	require.NoError(t, env.db.Model(&batch.Batch{}).Where("id = ?", b.ID).
		Update("expires_at", expiresAt).Error)

	return b, relPath
}

func (env *testEnv) seedUpload(t *testing.T, uploadID string, updatedAt time.Time) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, env.store.WriteChunk(uploadID, 0, []byte("partial")))
	require.NoError(t, env.uploads.Create(ctx, &chunk.ChunkedUpload{
		UploadID:  uploadID,
		Filename:  uploadID + ".bin",
		TotalSize: 100,
		Offset:    7,
	}))
	// UpdateColumn so gorm does not stamp updated_at back to now.
	require.NoError(t, env.db.Model(&chunk.ChunkedUpload{}).Where("upload_id = ?", uploadID).
		UpdateColumn("updated_at", updatedAt).Error)
}

func TestSweepRemovesExpiredBatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expired, blobPath := env.seedBatch(t, "expired-one", time.Now().Add(-time.Hour))
	alive, _ := env.seedBatch(t, "still-alive", time.Now().Add(time.Hour))

	report, err := env.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.BatchesRemoved)
	assert.Equal(t, 1, report.FilesRemoved)
	assert.Zero(t, report.Skipped)

	_, err = env.batches.GetByUUID(ctx, expired.URLUUID)
	assert.ErrorIs(t, err, batch.ErrBatchNotFound)
	_, err = env.store.Read(blobPath)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = env.batches.GetByUUID(ctx, alive.URLUUID)
	assert.NoError(t, err)
}

func TestSweepRemovesStaleUploads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUpload(t, "stale-up", time.Now().Add(-48*time.Hour))
	env.seedUpload(t, "fresh-up", time.Now())

	report, err := env.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.UploadsRemoved)

	_, err = env.uploads.GetByUploadID(ctx, "stale-up")
	assert.ErrorIs(t, err, chunk.ErrUploadNotFound)
	_, err = env.store.ReadTemp("stale-up")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = env.uploads.GetByUploadID(ctx, "fresh-up")
	assert.NoError(t, err)
	_, err = env.store.ReadTemp("fresh-up")
	assert.NoError(t, err)
}

func TestSweepMissingBlobDoesNotBlockDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expired, blobPath := env.seedBatch(t, "expired-two", time.Now().Add(-time.Hour))
	require.NoError(t, env.store.Remove(blobPath))

	report, err := env.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.BatchesRemoved)

	_, err = env.batches.GetByUUID(ctx, expired.URLUUID)
	assert.ErrorIs(t, err, batch.ErrBatchNotFound)
}

func TestSweepEmptyDatabase(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.service.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.BatchesRemoved)
	assert.Zero(t, report.UploadsRemoved)
}
