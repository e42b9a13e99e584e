package chunk

import "time"

// ChunkedUpload tracks one in-progress file transfer. It is created on the
// first chunk for a given upload id and deleted once its data has been folded
// into a batch, or by the retention sweep when the upload is abandoned.
type ChunkedUpload struct {
	ID        uint64 `gorm:"primaryKey"`
	UploadID  string `gorm:"column:upload_id;size:255;uniqueIndex;not null"`
	OwnerID   *int64 `gorm:"column:owner_id;index"`
	Filename  string `gorm:"column:filename;size:255;not null"`
	TotalSize int64  `gorm:"column:total_size;not null"`
	Offset    int64  `gorm:"column:offset;not null;default:0"`
	TempPath  string `gorm:"column:temp_path;size:500"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ChunkedUpload) TableName() string { return "chunked_uploads" }

// Complete reports whether every declared byte has been written. Finalizing
// an incomplete upload is rejected.
func (u *ChunkedUpload) Complete() bool {
	return u.Offset == u.TotalSize
}
