package batch

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"quickshare/internal/domain/chunk"
)

type Repository interface {
	// Create inserts a batch; a short code (or UUID) collision surfaces as
	// ErrDuplicate so the caller can retry with a fresh code.
	Create(ctx context.Context, b *Batch) error
	GetByID(ctx context.Context, id uint64) (*Batch, error)
	GetByUUID(ctx context.Context, urlUUID string) (*Batch, error)
	GetByShortCode(ctx context.Context, code string) (*Batch, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Batch, error)
	ListExpired(ctx context.Context, now time.Time) ([]Batch, error)
	Delete(ctx context.Context, id uint64) error

	CreateFile(ctx context.Context, f *SharedFile) error
	GetFileByID(ctx context.Context, id uint64) (*SharedFile, error)
	FileExistsForUpload(ctx context.Context, batchID uint64, uploadID string) (bool, error)
	CountFiles(ctx context.Context, batchID uint64) (int64, error)

	CountByOwnerSince(ctx context.Context, ownerID int64, since time.Time) (int64, error)
	CountByIPSince(ctx context.Context, ip string, since time.Time) (int64, error)

	// GetChunkedUpload resolves an upload record within the repository's
	// current transaction scope, so finalize sees a consistent snapshot.
	// Returns (nil, nil) when no record exists for the id.
	GetChunkedUpload(ctx context.Context, uploadID string) (*chunk.ChunkedUpload, error)

	// Transaction runs fn against a repository bound to one database
	// transaction; any error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, b *Batch) error {
	err := r.db.WithContext(ctx).Create(b).Error
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// isDuplicate recognizes unique constraint violations across the supported
// drivers; gorm only translates them when the dialector cooperates, so the
// raw messages are matched as a fallback.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func (r *repository) GetByID(ctx context.Context, id uint64) (*Batch, error) {
	var b Batch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetByUUID(ctx context.Context, urlUUID string) (*Batch, error) {
	var b Batch
	err := r.db.WithContext(ctx).Preload("Files").Where("url_uuid = ?", urlUUID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetByShortCode(ctx context.Context, code string) (*Batch, error) {
	var b Batch
	err := r.db.WithContext(ctx).Where("short_code = ?", code).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID int64) ([]Batch, error) {
	var batches []Batch
	err := r.db.WithContext(ctx).Preload("Files").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&batches).Error
	return batches, err
}

func (r *repository) ListExpired(ctx context.Context, now time.Time) ([]Batch, error) {
	var batches []Batch
	err := r.db.WithContext(ctx).Preload("Files").
		Where("expires_at < ?", now).
		Find(&batches).Error
	return batches, err
}

// Delete removes a batch and all of its file rows. The cascade is explicit
// so it works the same on databases without enforced foreign keys.
func (r *repository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id = ?", id).Delete(&SharedFile{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Batch{}).Error
	})
}

func (r *repository) CreateFile(ctx context.Context, f *SharedFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *repository) GetFileByID(ctx context.Context, id uint64) (*SharedFile, error) {
	var f SharedFile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repository) FileExistsForUpload(ctx context.Context, batchID uint64, uploadID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&SharedFile{}).
		Where("batch_id = ? AND upload_id = ?", batchID, uploadID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CountFiles(ctx context.Context, batchID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&SharedFile{}).Where("batch_id = ?", batchID).Count(&count).Error
	return count, err
}

func (r *repository) CountByOwnerSince(ctx context.Context, ownerID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Batch{}).
		Where("owner_id = ? AND created_at >= ?", ownerID, since).
		Count(&count).Error
	return count, err
}

func (r *repository) CountByIPSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Batch{}).
		Where("owner_id IS NULL AND ip_address = ? AND created_at >= ?", ip, since).
		Count(&count).Error
	return count, err
}

func (r *repository) GetChunkedUpload(ctx context.Context, uploadID string) (*chunk.ChunkedUpload, error) {
	var u chunk.ChunkedUpload
	err := r.db.WithContext(ctx).Where("upload_id = ?", uploadID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}
