package download

import (
	"archive/zip"
	"bytes"
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
	"quickshare/internal/domain/access"
	"quickshare/internal/domain/batch"
	"quickshare/internal/pkg/cryptox"
	"quickshare/internal/storage"
)

type stubGate struct {
	err error
}

func (g stubGate) Authorize(*batch.Batch, string) error { return g.err }

type testEnv struct {
	service *Service
	repo    batch.Repository
	store   *storage.Store
	gate    *stubGate
	db      *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&batch.Batch{}, &batch.SharedFile{}))

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	repo := batch.NewRepository(db)
	gate := &stubGate{}

	return &testEnv{
		service: NewService(repo, gate, store, log),
		repo:    repo,
		store:   store,
		gate:    gate,
		db:      db,
	}
}

func (env *testEnv) expireBatch(t *testing.T, id uint64) {
	t.Helper()
	err := env.db.Model(&batch.Batch{}).Where("id = ?", id).
		Update("expires_at", time.Now().Add(-time.Minute)).Error
	require.NoError(t, err)
}

// seedBatch stores a batch with encrypted files ready for download.
func (env *testEnv) seedBatch(t *testing.T, files map[string][]byte) *batch.Batch {
	t.Helper()
	ctx := context.Background()

	key, err := cryptox.GenerateKey()
	require.NoError(t, err)

	b := &batch.Batch{
		ShortCode:     "ABC123",
		URLUUID:       "batch-uuid",
		EncryptionKey: key,
		ExpectedFiles: len(files),
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	require.NoError(t, env.repo.Create(ctx, b))

	for name, content := range files {
		ciphertext, err := cryptox.Encrypt(key, content)
		require.NoError(t, err)
		relPath, err := env.store.SaveEncrypted(name+".enc", ciphertext)
		require.NoError(t, err)

		require.NoError(t, env.repo.CreateFile(ctx, &batch.SharedFile{
			BatchID:      b.ID,
			UploadID:     "up-" + name,
			StoragePath:  relPath,
			OriginalName: name,
			FileSize:     int64(len(ciphertext)),
			ContentHash:  cryptox.HashHex(content),
		}))
	}

	loaded, err := env.repo.GetByUUID(ctx, b.URLUUID)
	require.NoError(t, err)
	return loaded
}

func TestFetchOneRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("hello world")
	b := env.seedBatch(t, map[string][]byte{"notes.txt": content})

	f, err := env.service.FetchOne(context.Background(), b.Files[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", f.Name)
	assert.Contains(t, f.MIME, "text/plain")
	assert.Equal(t, content, f.Data)
}

func TestFetchOneUnknownExtension(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBatch(t, map[string][]byte{"blob.xyzunknown": []byte("data")})

	f, err := env.service.FetchOne(context.Background(), b.Files[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", f.MIME)
}

func TestFetchOneIntegrityFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedBatch(t, map[string][]byte{"notes.txt": []byte("hello")})

	// Overwrite the blob with a ciphertext of different content.
	other, err := cryptox.Encrypt(b.EncryptionKey, []byte("tampered"))
	require.NoError(t, err)
	_, err = env.store.SaveEncrypted(filepath.Base(b.Files[0].StoragePath), other)
	require.NoError(t, err)

	_, err = env.service.FetchOne(ctx, b.Files[0].ID, "")
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestFetchOneDecryptionFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedBatch(t, map[string][]byte{"notes.txt": []byte("hello")})

	wrongKey, err := cryptox.GenerateKey()
	require.NoError(t, err)
	other, err := cryptox.Encrypt(wrongKey, []byte("hello"))
	require.NoError(t, err)
	_, err = env.store.SaveEncrypted(filepath.Base(b.Files[0].StoragePath), other)
	require.NoError(t, err)

	_, err = env.service.FetchOne(ctx, b.Files[0].ID, "")
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestFetchOneExpiredBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedBatch(t, map[string][]byte{"notes.txt": []byte("hello")})
	env.expireBatch(t, b.ID)

	_, err := env.service.FetchOne(ctx, b.Files[0].ID, "")
	assert.ErrorIs(t, err, batch.ErrBatchExpired)
}

func TestMetaExpiredBatch(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBatch(t, map[string][]byte{"notes.txt": []byte("hello")})
	env.expireBatch(t, b.ID)

	_, err := env.service.Meta(context.Background(), "batch-uuid", "")
	assert.ErrorIs(t, err, batch.ErrBatchExpired)
}

func TestFetchOneLocked(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBatch(t, map[string][]byte{"notes.txt": []byte("hello")})
	env.gate.err = access.ErrLocked

	_, err := env.service.FetchOne(context.Background(), b.Files[0].ID, "")
	assert.ErrorIs(t, err, access.ErrLocked)
}

func TestMetaOpenBatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedBatch(t, map[string][]byte{"a.txt": []byte("aa"), "b.txt": []byte("bb")})

	page, err := env.service.Meta(context.Background(), "batch-uuid", "")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", page.ShortCode)
	assert.False(t, page.Locked)
	assert.Len(t, page.Files, 2)
}

func TestMetaLockedBatchHidesFiles(t *testing.T) {
	env := newTestEnv(t)
	env.seedBatch(t, map[string][]byte{"a.txt": []byte("aa")})
	env.gate.err = access.ErrLocked

	page, err := env.service.Meta(context.Background(), "batch-uuid", "")
	require.NoError(t, err)
	assert.True(t, page.Locked)
	assert.Empty(t, page.Files)
}

func TestMetaUnknownBatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Meta(context.Background(), "no-such-uuid", "")
	assert.ErrorIs(t, err, batch.ErrBatchNotFound)
}

func TestFetchZip(t *testing.T) {
	env := newTestEnv(t)
	env.seedBatch(t, map[string][]byte{
		"a.txt": []byte("content a"),
		"b.txt": []byte("content b"),
	})

	archive, err := env.service.FetchZip(context.Background(), "batch-uuid", "")
	require.NoError(t, err)
	assert.Equal(t, "quickshare_ABC123.zip", archive.Name)
	assert.Empty(t, archive.Skipped)

	zr, err := zip.NewReader(bytes.NewReader(archive.Data), int64(len(archive.Data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	contents := make(map[string]string)
	for _, zf := range zr.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[zf.Name] = string(data)
	}
	assert.Equal(t, "content a", contents["a.txt"])
	assert.Equal(t, "content b", contents["b.txt"])
}

func TestFetchZipSkipsUnreadableFiles(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBatch(t, map[string][]byte{
		"good.txt": []byte("fine"),
		"bad.txt":  []byte("broken"),
	})

	// Destroy one blob so it cannot be decrypted.
	for _, f := range b.Files {
		if f.OriginalName == "bad.txt" {
			_, err := env.store.SaveEncrypted(filepath.Base(f.StoragePath), []byte("garbage"))
			require.NoError(t, err)
		}
	}

	archive, err := env.service.FetchZip(context.Background(), "batch-uuid", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"bad.txt"}, archive.Skipped)

	zr, err := zip.NewReader(bytes.NewReader(archive.Data), int64(len(archive.Data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "good.txt", zr.File[0].Name)
}

func TestFetchZipLocked(t *testing.T) {
	env := newTestEnv(t)
	env.seedBatch(t, map[string][]byte{"a.txt": []byte("aa")})
	env.gate.err = access.ErrLocked

	_, err := env.service.FetchZip(context.Background(), "batch-uuid", "")
	assert.ErrorIs(t, err, access.ErrLocked)
}
