// Package video decodes clips from disk into the grayscale frame stream the
// feature extractor consumes. Sampling happens here: the source decodes every
// frame in order but only surfaces one per stride, matching the rate the
// behavioral model was trained at.
package video

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/auticare/clipscore/internal/domain/extract"
)

// targetSampleHz is the frame sampling rate the feature pipeline was trained
// against. The stride derives from it and the clip's native FPS.
const targetSampleHz = 5.0

// Source reads one clip from disk, surfacing roughly targetSampleHz frames
// per second of footage. It is single-pass and not safe for concurrent use.
type Source struct {
	cap    *gocv.VideoCapture
	frame  gocv.Mat
	fps    float64
	frames float64
	stride int
	index  int
	closed bool
}

// Open prepares the clip at path for sampled decoding. The returned source
// holds an OS decoder handle and must be closed by the caller.
func Open(path string) (*Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", extract.ErrSourceUnreadable, path, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("%w: %s", extract.ErrSourceUnreadable, path)
	}

	fps := vc.Get(gocv.VideoCaptureFPS)
	frames := vc.Get(gocv.VideoCaptureFrameCount)

	// Decode every frame but keep one per stride. Clips slower than the
	// target rate keep every frame.
	stride := 1
	if fps > targetSampleHz {
		stride = int(fps / targetSampleHz)
	}

	return &Source{
		cap:    vc,
		frame:  gocv.NewMat(),
		fps:    fps,
		frames: frames,
		stride: stride,
	}, nil
}

// Next decodes forward to the next sampled frame and writes its grayscale
// conversion into dst. It returns false with a nil error at end of stream.
func (s *Source) Next(dst *gocv.Mat) (bool, error) {
	if s.closed {
		return false, fmt.Errorf("%w: source is closed", extract.ErrSourceUnreadable)
	}

	for {
		if ok := s.cap.Read(&s.frame); !ok {
			return false, nil
		}
		idx := s.index
		s.index++

		if idx%s.stride != 0 {
			continue
		}
		if s.frame.Empty() {
			return false, fmt.Errorf("%w: empty frame at index %d", extract.ErrDecode, idx)
		}
		if err := gocv.CvtColor(s.frame, dst, gocv.ColorBGRToGray); err != nil {
			return false, fmt.Errorf("%w: grayscale conversion at frame %d: %w", extract.ErrDecode, idx, err)
		}
		return true, nil
	}
}

// Duration reports the clip length in seconds, or 0 when the container
// carries no usable FPS metadata.
func (s *Source) Duration() float64 {
	if s.fps <= 0 {
		return 0
	}
	return s.frames / s.fps
}

// FPS reports the clip's native frame rate as the container declares it.
func (s *Source) FPS() float64 { return s.fps }

// Stride reports how many decoded frames map to one sampled frame.
func (s *Source) Stride() int { return s.stride }

// Close releases the decoder handle and the internal decode buffer. It is
// safe to call more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.frame.Close()
	return s.cap.Close()
}
