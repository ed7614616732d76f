package extract_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"

	extract "github.com/auticare/clipscore/internal/domain/extract"
	features "github.com/auticare/clipscore/internal/domain/features"
	logging "github.com/auticare/clipscore/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockSource struct {
	frames   int
	served   int
	duration float64
	failAt   int // 1-based sampled index at which Next fails; 0 disables
	failErr  error
}

func (s *mockSource) Next(_ *gocv.Mat) (bool, error) {
	if s.failAt > 0 && s.served+1 == s.failAt {
		return false, s.failErr
	}
	if s.served >= s.frames {
		return false, nil
	}
	s.served++
	return true, nil
}

func (s *mockSource) Duration() float64 { return s.duration }

type mockFaces struct {
	counts []int
	calls  int
}

func (f *mockFaces) Count(_ gocv.Mat) int {
	count := 0
	if f.calls < len(f.counts) {
		count = f.counts[f.calls]
	}
	f.calls++
	return count
}

type mockMotion struct {
	magnitudes []float64
	calls      int
	err        error
}

func (m *mockMotion) Magnitude(_, _ gocv.Mat) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	mag := 0.0
	if m.calls < len(m.magnitudes) {
		mag = m.magnitudes[m.calls]
	}
	m.calls++
	return mag, nil
}

func TestExtractorRun(t *testing.T) {
	convey.Convey("Given an extractor with scripted collaborators", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		convey.Convey("When running over a five frame source", func() {
			src := &mockSource{frames: 5, duration: 1.0}
			faces := &mockFaces{counts: []int{1, 0, 1, 1, 0}}
			motion := &mockMotion{magnitudes: []float64{0.5, 1.5, 0.5, 1.5}}

			e := extract.New(faces, motion)
			fs, sampled, err := e.Run(ctx, src)

			convey.Convey("Then it should sample every frame", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sampled, convey.ShouldEqual, 5)
			})

			convey.Convey("And face detection should run once per frame", func() {
				convey.So(faces.calls, convey.ShouldEqual, 5)
			})

			convey.Convey("And motion should run once per consecutive pair", func() {
				convey.So(motion.calls, convey.ShouldEqual, 4)
			})

			convey.Convey("And the features should match a direct aggregation", func() {
				want := features.Aggregate([]int{1, 0, 1, 1, 0}, []float64{0.5, 1.5, 0.5, 1.5}, 1.0)
				convey.So(fs, convey.ShouldResemble, want)
			})
		})

		convey.Convey("When the source has no frames", func() {
			src := &mockSource{frames: 0, duration: 0}
			e := extract.New(&mockFaces{}, &mockMotion{})

			fs, sampled, err := e.Run(ctx, src)

			convey.Convey("Then it should succeed with an all-zero feature set", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sampled, convey.ShouldEqual, 0)
				convey.So(fs, convey.ShouldResemble, features.FeatureSet{})
			})
		})

		convey.Convey("When the source has a single frame", func() {
			src := &mockSource{frames: 1, duration: 0.2}
			faces := &mockFaces{counts: []int{2}}
			motion := &mockMotion{}

			e := extract.New(faces, motion)
			fs, sampled, err := e.Run(ctx, src)

			convey.Convey("Then no motion pair should be measured", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sampled, convey.ShouldEqual, 1)
				convey.So(motion.calls, convey.ShouldEqual, 0)
				convey.So(fs.EyeContactFrequency, convey.ShouldEqual, 1.0)
				convey.So(fs.BodyMovementPatterns, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestExtractorBudgets(t *testing.T) {
	convey.Convey("Given an extractor with processing budgets", t, func() {
		_ = logging.Init()

		convey.Convey("When the clip exceeds the sampled-frame cap", func() {
			src := &mockSource{frames: 10, duration: 2.0}
			e := extract.New(&mockFaces{}, &mockMotion{}, extract.WithMaxSamples(3))

			_, sampled, err := e.Run(context.Background(), src)

			convey.Convey("Then it should fail with the timeout kind", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errorIs(err, extract.ErrExtractionTimeout), convey.ShouldBeTrue)
			})

			convey.Convey("And it should stop right past the cap", func() {
				convey.So(sampled, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the clip fits exactly within the cap", func() {
			src := &mockSource{frames: 3, duration: 0.6}
			e := extract.New(&mockFaces{}, &mockMotion{}, extract.WithMaxSamples(3))

			_, sampled, err := e.Run(context.Background(), src)

			convey.Convey("Then it should succeed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sampled, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the deadline has already expired", func() {
			src := &mockSource{frames: 100, duration: 20.0}
			e := extract.New(&mockFaces{}, &mockMotion{})

			ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
			defer cancel()

			_, _, err := e.Run(ctx, src)

			convey.Convey("Then it should fail with the timeout kind", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errorIs(err, extract.ErrExtractionTimeout), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the context is canceled outright", func() {
			src := &mockSource{frames: 100, duration: 20.0}
			e := extract.New(&mockFaces{}, &mockMotion{})

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, _, err := e.Run(ctx, src)

			convey.Convey("Then it should fail without the timeout kind", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errorIs(err, extract.ErrExtractionTimeout), convey.ShouldBeFalse)
				convey.So(errorIs(err, context.Canceled), convey.ShouldBeTrue)
			})
		})
	})
}

func TestExtractorErrorPropagation(t *testing.T) {
	convey.Convey("Given an extractor whose collaborators fail", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		convey.Convey("When the source fails to decode mid-stream", func() {
			src := &mockSource{frames: 10, duration: 2.0, failAt: 3, failErr: extract.ErrDecode}
			e := extract.New(&mockFaces{}, &mockMotion{})

			fs, _, err := e.Run(ctx, src)

			convey.Convey("Then the decode kind should surface with no partial features", func() {
				convey.So(errorIs(err, extract.ErrDecode), convey.ShouldBeTrue)
				convey.So(fs, convey.ShouldResemble, features.FeatureSet{})
			})
		})

		convey.Convey("When the motion meter reports mismatched dimensions", func() {
			src := &mockSource{frames: 10, duration: 2.0}
			motion := &mockMotion{err: extract.ErrDimensionMismatch}
			e := extract.New(&mockFaces{}, motion)

			fs, _, err := e.Run(ctx, src)

			convey.Convey("Then the dimension kind should surface with no partial features", func() {
				convey.So(errorIs(err, extract.ErrDimensionMismatch), convey.ShouldBeTrue)
				convey.So(fs, convey.ShouldResemble, features.FeatureSet{})
			})
		})
	})
}

// errorIs keeps the convey assertions terse.
func errorIs(err, target error) bool { return errors.Is(err, target) }
