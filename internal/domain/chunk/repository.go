package chunk

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, u *ChunkedUpload) error
	GetByUploadID(ctx context.Context, uploadID string) (*ChunkedUpload, error)
	Save(ctx context.Context, u *ChunkedUpload) error
	DeleteByUploadID(ctx context.Context, uploadID string) error
	ListStale(ctx context.Context, before time.Time) ([]ChunkedUpload, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, u *ChunkedUpload) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *repository) GetByUploadID(ctx context.Context, uploadID string) (*ChunkedUpload, error) {
	var u ChunkedUpload
	err := r.db.WithContext(ctx).Where("upload_id = ?", uploadID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) Save(ctx context.Context, u *ChunkedUpload) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *repository) DeleteByUploadID(ctx context.Context, uploadID string) error {
	return r.db.WithContext(ctx).Where("upload_id = ?", uploadID).Delete(&ChunkedUpload{}).Error
}

func (r *repository) ListStale(ctx context.Context, before time.Time) ([]ChunkedUpload, error) {
	var uploads []ChunkedUpload
	err := r.db.WithContext(ctx).Where("updated_at < ?", before).Find(&uploads).Error
	return uploads, err
}
