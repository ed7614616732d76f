// Package vision wraps the OpenCV primitives the extractor runs per frame:
// Haar-cascade face counting and Farneback dense optical flow. Instances hold
// native state and are not safe for concurrent use; give each worker its own.
package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/auticare/clipscore/internal/domain/extract"
)

// Cascade detection parameters the behavioral model was trained with.
const (
	cascadeScaleFactor  = 1.1
	cascadeMinNeighbors = 4
)

// Farneback parameters the motion statistics were calibrated with.
const (
	flowPyrScale   = 0.5
	flowLevels     = 3
	flowWinSize    = 15
	flowIterations = 3
	flowPolyN      = 5
	flowPolySigma  = 1.2
	flowFlags      = 0
)

// HaarCounter counts faces in grayscale frames with a Haar cascade.
type HaarCounter struct {
	classifier gocv.CascadeClassifier
	closed     bool
}

// NewHaarCounter loads the cascade definition at path. Loading is strict so
// a missing or corrupt cascade fails at startup, not on the first clip.
func NewHaarCounter(path string) (*HaarCounter, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		_ = classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascadeLoad, path)
	}
	return &HaarCounter{classifier: classifier}, nil
}

// Count reports how many faces the cascade finds in the grayscale frame.
func (h *HaarCounter) Count(gray gocv.Mat) int {
	rects := h.classifier.DetectMultiScaleWithParams(
		gray, cascadeScaleFactor, cascadeMinNeighbors, 0, image.Point{}, image.Point{})
	return len(rects)
}

// Close releases the native cascade. It is safe to call more than once.
func (h *HaarCounter) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.classifier.Close()
}

// FlowMeter reduces dense optical flow between consecutive frames to a
// single mean displacement magnitude in pixels.
type FlowMeter struct {
	flow gocv.Mat
	mag  gocv.Mat
}

// NewFlowMeter allocates the reusable flow buffers.
func NewFlowMeter() *FlowMeter {
	return &FlowMeter{
		flow: gocv.NewMat(),
		mag:  gocv.NewMat(),
	}
}

// Magnitude computes Farneback dense flow from prev to curr and returns the
// mean magnitude over all pixels. Both frames must be grayscale and share
// the same geometry.
func (f *FlowMeter) Magnitude(prev, curr gocv.Mat) (float64, error) {
	if prev.Cols() != curr.Cols() || prev.Rows() != curr.Rows() {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d",
			extract.ErrDimensionMismatch, prev.Cols(), prev.Rows(), curr.Cols(), curr.Rows())
	}

	if err := gocv.CalcOpticalFlowFarneback(prev, curr, &f.flow,
		flowPyrScale, flowLevels, flowWinSize, flowIterations, flowPolyN, flowPolySigma, flowFlags); err != nil {
		return 0, fmt.Errorf("optical flow: %w", err)
	}

	channels := gocv.Split(f.flow)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()
	if len(channels) != 2 {
		return 0, fmt.Errorf("optical flow produced %d channels, want 2", len(channels))
	}

	if err := gocv.Magnitude(channels[0], channels[1], &f.mag); err != nil {
		return 0, fmt.Errorf("flow magnitude: %w", err)
	}

	return f.mag.Mean().Val1, nil
}

// Close releases the flow buffers. It is safe to call more than once.
func (f *FlowMeter) Close() error {
	_ = f.flow.Close()
	_ = f.mag.Close()
	return nil
}
