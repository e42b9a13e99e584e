package chunk

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickshare/internal/database"
	"quickshare/internal/domain/identity"
	"quickshare/internal/domain/quota"
	"quickshare/internal/storage"
)

type stubQuota struct {
	allowed bool
	ceiling int64
}

func (q stubQuota) Check(context.Context, identity.Identity) (quota.Status, error) {
	return quota.Status{Allowed: q.allowed, ByteCeiling: q.ceiling}, nil
}

func newTestService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ChunkedUpload{}))

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewService(NewRepository(db), store, stubQuota{allowed: true, ceiling: 1 << 20}, log), store
}

func TestAppendCreatesRecordOnFirstChunk(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	progress, err := svc.Append(ctx, AppendRequest{
		UploadID:  "up-1",
		Filename:  "report.pdf",
		TotalSize: 10,
		Offset:    0,
		Chunk:     []byte("01234"),
	})
	require.NoError(t, err)
	assert.Equal(t, "continue", progress.Status)
	assert.Equal(t, int64(5), progress.Progress)

	upload, err := svc.repo.GetByUploadID(ctx, "up-1")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", upload.Filename)
	assert.False(t, upload.Complete())
}

func TestAppendOutOfOrderChunks(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// Second half first, then the first half.
	_, err := svc.Append(ctx, AppendRequest{
		UploadID: "up-1", Filename: "a.txt", TotalSize: 10, Offset: 5, Chunk: []byte("56789"),
	})
	require.NoError(t, err)
	_, err = svc.Append(ctx, AppendRequest{
		UploadID: "up-1", Filename: "a.txt", TotalSize: 10, Offset: 0, Chunk: []byte("01234"),
	})
	require.NoError(t, err)

	data, err := store.ReadTemp("up-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), data)
}

func TestAppendCompletesUpload(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, AppendRequest{
		UploadID: "up-1", Filename: "a.txt", TotalSize: 4, Offset: 0, Chunk: []byte("ab"),
	})
	require.NoError(t, err)
	_, err = svc.Append(ctx, AppendRequest{
		UploadID: "up-1", Filename: "a.txt", TotalSize: 4, Offset: 2, Chunk: []byte("cd"),
	})
	require.NoError(t, err)

	upload, err := svc.repo.GetByUploadID(ctx, "up-1")
	require.NoError(t, err)
	assert.True(t, upload.Complete())
}

func TestAppendValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, AppendRequest{Filename: "a.txt", TotalSize: 4, Chunk: []byte("ab")})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Append(ctx, AppendRequest{UploadID: "up-1", TotalSize: 4, Chunk: []byte("ab")})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Append(ctx, AppendRequest{UploadID: "up-1", Filename: "a.txt", TotalSize: 0})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = svc.Append(ctx, AppendRequest{
		UploadID: "up-1", Filename: "a.txt", TotalSize: 4, Offset: 3, Chunk: []byte("ab"),
	})
	assert.ErrorIs(t, err, ErrInvalidOffset)

	_, err = svc.Append(ctx, AppendRequest{
		UploadID: "up-1", Filename: "a.txt", TotalSize: 4, Offset: -1, Chunk: []byte("ab"),
	})
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestAppendQuotaExceeded(t *testing.T) {
	svc, _ := newTestService(t)
	svc.quotas = stubQuota{allowed: false, ceiling: 1 << 20}

	_, err := svc.Append(context.Background(), AppendRequest{
		UploadID: "up-1", Filename: "a.txt", TotalSize: 4, Offset: 0, Chunk: []byte("ab"),
	})
	assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
}

func TestAppendFileTooLarge(t *testing.T) {
	svc, _ := newTestService(t)
	svc.quotas = stubQuota{allowed: true, ceiling: 3}

	_, err := svc.Append(context.Background(), AppendRequest{
		UploadID: "up-1", Filename: "a.txt", TotalSize: 4, Offset: 0, Chunk: []byte("ab"),
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestAppendTraversalUploadIDStaysInTempDir(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.Append(context.Background(), AppendRequest{
		UploadID: "../../evil", Filename: "a.txt", TotalSize: 2, Offset: 0, Chunk: []byte("hi"),
	})
	require.NoError(t, err)

	// The file lands under the temp dir, not outside the data root.
	path := store.TempPath("../../evil")
	assert.Equal(t, "evil", filepath.Base(path))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
