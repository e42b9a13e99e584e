package download

import "errors"

var (
	ErrDecryption = errors.New("file could not be decrypted")
	ErrIntegrity  = errors.New("file failed integrity check")
)
