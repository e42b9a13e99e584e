package batch

import "time"

type FinalizeDTO struct {
	UploadIDs []string `json:"upload_ids" binding:"required"`
	Password  string   `json:"password"`
	Comment   string   `json:"comment"`
}

// Summary is the owner-facing view of a batch; secrets stay out.
type Summary struct {
	ShortCode   string    `json:"short_code"`
	URLUUID     string    `json:"url_uuid"`
	Comment     string    `json:"comment,omitempty"`
	FileCount   int       `json:"file_count"`
	HasPassword bool      `json:"has_password"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewSummary(b *Batch) Summary {
	return Summary{
		ShortCode:   b.ShortCode,
		URLUUID:     b.URLUUID,
		Comment:     b.Comment,
		FileCount:   len(b.Files),
		HasPassword: b.HasPassword(),
		CreatedAt:   b.CreatedAt,
		ExpiresAt:   b.ExpiresAt,
	}
}
