package scoring

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrModelLoad        = errors.New("model load failed")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrInvalidVector    = errors.New("invalid feature vector")
)
