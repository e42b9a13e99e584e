package batch

import "time"

// Batch is a shareable collection of files with one shared fate: a single
// encryption key, a single expiry and an optional password. Reachable either
// by the 6-character short code or by the unguessable URL UUID.
type Batch struct {
	ID            uint64       `gorm:"primaryKey" json:"id"`
	ShortCode     string       `gorm:"column:short_code;size:6;uniqueIndex;not null" json:"short_code"`
	URLUUID       string       `gorm:"column:url_uuid;size:36;uniqueIndex;not null" json:"url_uuid"`
	OwnerID       *int64       `gorm:"column:owner_id;index" json:"-"`
	IPAddress     string       `gorm:"column:ip_address;size:45;index" json:"-"`
	Comment       string       `gorm:"column:comment;size:300" json:"comment"`
	EncryptionKey []byte       `gorm:"column:encryption_key;not null" json:"-"`
	PasswordHash  string       `gorm:"column:password_hash;size:128" json:"-"`
	ExpectedFiles int          `gorm:"column:expected_files;not null;default:0" json:"expected_files"`
	CreatedAt     time.Time    `json:"created_at"`
	ExpiresAt     time.Time    `gorm:"column:expires_at;index;not null" json:"expires_at"`
	Files         []SharedFile `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"files,omitempty"`
}

func (Batch) TableName() string { return "batches" }

func (b *Batch) HasPassword() bool {
	return b.PasswordHash != ""
}

func (b *Batch) Expired(now time.Time) bool {
	return b.ExpiresAt.Before(now)
}

// SharedFile is one encrypted artifact belonging to a batch. UploadID keeps
// the encryption step idempotent: re-running a job skips files that were
// already stored for the same (batch, upload) pair.
type SharedFile struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	BatchID      uint64    `gorm:"column:batch_id;index;not null" json:"-"`
	UploadID     string    `gorm:"column:upload_id;size:255;index" json:"-"`
	StoragePath  string    `gorm:"column:storage_path;size:500" json:"-"`
	OriginalName string    `gorm:"column:original_name;size:255" json:"original_name"`
	RelativePath string    `gorm:"column:relative_path;size:500" json:"relative_path,omitempty"`
	FileSize     int64     `gorm:"column:file_size;not null;default:0" json:"file_size"`
	ContentHash  string    `gorm:"column:content_hash;size:64" json:"content_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (SharedFile) TableName() string { return "shared_files" }

// DisplayName is the name a download should carry: the relative path for
// directory-structured uploads, the original name otherwise.
func (f *SharedFile) DisplayName() string {
	if f.RelativePath != "" {
		return f.RelativePath
	}
	return f.OriginalName
}
