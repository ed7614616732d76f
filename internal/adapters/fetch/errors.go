package fetch

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrBadURL   = errors.New("unsupported video url")
	ErrFetch    = errors.New("video fetch failed")
	ErrTooLarge = errors.New("video exceeds size limit")
)
