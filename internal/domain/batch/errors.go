package batch

import "errors"

var (
	ErrBatchNotFound     = errors.New("batch not found")
	ErrBatchExpired      = errors.New("batch has expired")
	ErrNoUploads         = errors.New("upload_ids must not be empty")
	ErrIncompleteUpload  = errors.New("upload is incomplete, not all bytes were received")
	ErrShortCode         = errors.New("failed to assign a unique short code")
	ErrNotOwner          = errors.New("you do not own this batch")
	ErrFileNotFound      = errors.New("file not found")

	// ErrDuplicate is the repository's translation of a unique constraint
	// violation; finalize retries short code generation on it.
	ErrDuplicate = errors.New("unique constraint violated")
)
