package chunk

import "errors"

var (
	ErrUploadNotFound = errors.New("upload not found")
	ErrInvalidRequest = errors.New("upload_id and filename are required")
	ErrInvalidSize    = errors.New("invalid file size")
	ErrInvalidOffset  = errors.New("chunk does not fit within the declared size")
	ErrFileTooLarge   = errors.New("file exceeds the size limit for this account")
	ErrStorage        = errors.New("failed to store chunk")
)
