// Package extract orchestrates per-clip feature extraction: it walks the
// sampled frames of a source, runs face detection and optical flow over
// them, and folds the signals into a feature set.
package extract

import (
	"context"
	"errors"
	"fmt"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/auticare/clipscore/internal/domain/features"
	"github.com/auticare/clipscore/pkg/logger"
)

// FrameSource yields sampled grayscale frames in decode order. Sources are
// single-pass: once Next reports the end of the stream the source is
// exhausted. The caller that opened the source is responsible for closing it.
type FrameSource interface {
	// Next decodes up to the next sampled frame into dst and reports
	// whether one was produced. (false, nil) means end of stream.
	Next(dst *gocv.Mat) (bool, error)

	// Duration reports the clip duration in seconds, or 0 when the
	// container does not expose a frame rate.
	Duration() float64
}

// FaceCounter counts faces in a single grayscale frame.
type FaceCounter interface {
	Count(gray gocv.Mat) int
}

// MotionMeter reduces the dense optical flow between two consecutive
// grayscale frames to a mean magnitude.
type MotionMeter interface {
	Magnitude(prev, curr gocv.Mat) (float64, error)
}

// Extractor runs the extraction pipeline over one source at a time.
// Instances are stateless between runs and safe for sequential reuse;
// concurrent runs need separate extractors only if the injected detector
// is not safe for concurrent use.
type Extractor struct {
	faces      FaceCounter
	motion     MotionMeter
	maxSamples int
}

// New creates an Extractor with the given collaborators.
func New(faces FaceCounter, motion MotionMeter, opts ...Option) *Extractor {
	e := &Extractor{
		faces:  faces,
		motion: motion,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run consumes the source to exhaustion and aggregates the per-frame
// signals. It returns the aggregated features together with the number of
// sampled frames. On any error there is no partial feature set.
//
// Face detection and optical flow for a frame pair run concurrently; both
// only read the frame buffers. The context is checked every iteration so a
// deadline bounds wall-clock extraction time.
func (e *Extractor) Run(ctx context.Context, src FrameSource) (features.FeatureSet, int, error) {
	prev := gocv.NewMat()
	curr := gocv.NewMat()
	defer func() { _ = prev.Close() }()
	defer func() { _ = curr.Close() }()

	var (
		faceCounts []int
		motion     []float64
		havePrev   bool
		sampled    int
	)

	for {
		if err := ctx.Err(); err != nil {
			return features.FeatureSet{}, sampled, deadlineError(err)
		}

		ok, err := src.Next(&curr)
		if err != nil {
			return features.FeatureSet{}, sampled, err
		}
		if !ok {
			break
		}

		sampled++
		if e.maxSamples > 0 && sampled > e.maxSamples {
			return features.FeatureSet{}, sampled,
				fmt.Errorf("%w: clip exceeds %d sampled frames", ErrExtractionTimeout, e.maxSamples)
		}

		var (
			faceCount     int
			pairMagnitude float64
			g             errgroup.Group
		)
		g.Go(func() error {
			faceCount = e.faces.Count(curr)
			return nil
		})
		if havePrev {
			g.Go(func() error {
				m, err := e.motion.Magnitude(prev, curr)
				if err != nil {
					return err
				}
				pairMagnitude = m
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return features.FeatureSet{}, sampled, err
		}

		faceCounts = append(faceCounts, faceCount)
		if havePrev {
			motion = append(motion, pairMagnitude)
		}

		// Reuse the two frame buffers: the next decode overwrites the
		// frame that just became stale.
		prev, curr = curr, prev
		havePrev = true
	}

	fs := features.Aggregate(faceCounts, motion, src.Duration())

	logger.Get().Debug(ctx, "extraction complete",
		logger.Int("sampledFrames", sampled),
		logger.Int("motionSamples", len(motion)),
		logger.Float64("durationSeconds", fs.DurationSeconds))

	return fs, sampled, nil
}

// deadlineError maps a context error to the pipeline taxonomy: deadline
// expiry is an extraction timeout, plain cancellation passes through.
func deadlineError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrExtractionTimeout, err)
	}
	return fmt.Errorf("extraction canceled: %w", err)
}
