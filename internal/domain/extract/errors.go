package extract

import (
	"errors"
)

// Sentinel error kinds for the extraction pipeline. Boundaries translate
// these into their own response formats via errors.Is.
var (
	// ErrSourceUnreadable means the clip could not be opened at all:
	// missing file, unsupported container, or a source with no frames.
	ErrSourceUnreadable = errors.New("video source unreadable")

	// ErrDecode means a frame was read but could not be decoded or
	// converted. Distinct from normal end-of-stream.
	ErrDecode = errors.New("frame decode failed")

	// ErrDimensionMismatch means consecutive frames changed dimensions
	// mid-stream, which the optical flow step cannot tolerate.
	ErrDimensionMismatch = errors.New("frame dimensions changed mid-stream")

	// ErrExtractionTimeout means a clip exceeded the sampled-frame budget
	// or the wall-clock deadline before extraction finished.
	ErrExtractionTimeout = errors.New("extraction budget exceeded")
)
