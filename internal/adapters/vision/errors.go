package vision

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrCascadeLoad = errors.New("cascade load failed")
)
