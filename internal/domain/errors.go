package domain

import "errors"

// Error classes surfaced to the invoking scheduler. Callers wrap these with
// context via fmt.Errorf("...: %w", ...) and test with errors.Is.
var (
	ErrConfig     = errors.New("configuration error")
	ErrDataFormat = errors.New("data format error")
	ErrNotFound   = errors.New("not found")
)
