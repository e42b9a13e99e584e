package access

import "errors"

var (
	ErrWrongPassword   = errors.New("wrong password")
	ErrTooManyAttempts = errors.New("too many attempts, wait a minute")
	ErrLocked          = errors.New("password required")
)
