package video_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"gocv.io/x/gocv"

	"github.com/auticare/clipscore/internal/adapters/video"
	"github.com/auticare/clipscore/internal/domain/extract"
)

// writeClip renders a synthetic MJPG clip and returns its path.
func writeClip(t *testing.T, frames int, fps float64, width, height int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.avi")
	writer, err := gocv.VideoWriterFile(path, "MJPG", fps, width, height, true)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer writer.Close()

	if !writer.IsOpened() {
		t.Fatal("writer did not open")
	}

	for i := 0; i < frames; i++ {
		shade := float64((i * 7) % 256)
		frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(shade, shade, shade, 0), height, width, gocv.MatTypeCV8UC3)
		if err := writer.Write(frame); err != nil {
			frame.Close()
			t.Fatalf("write frame %d: %v", i, err)
		}
		frame.Close()
	}

	return path
}

// drain pulls every sampled frame, asserting each is a non-empty grayscale
// image of the expected geometry.
func drain(t *testing.T, src *video.Source, width, height int) int {
	t.Helper()

	dst := gocv.NewMat()
	defer dst.Close()

	sampled := 0
	for {
		ok, err := src.Next(&dst)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			return sampled
		}
		sampled++

		if dst.Empty() {
			t.Fatal("sampled frame is empty")
		}
		if dst.Channels() != 1 {
			t.Fatalf("sampled frame has %d channels, want 1", dst.Channels())
		}
		if dst.Cols() != width || dst.Rows() != height {
			t.Fatalf("sampled frame is %dx%d, want %dx%d", dst.Cols(), dst.Rows(), width, height)
		}
	}
}

func TestOpenRejectsUnreadableSources(t *testing.T) {
	convey.Convey("Given a path with no clip behind it", t, func() {
		convey.Convey("When opening it", func() {
			src, err := video.Open(filepath.Join(t.TempDir(), "missing.mp4"))

			convey.Convey("Then it should fail as unreadable", func() {
				convey.So(src, convey.ShouldBeNil)
				convey.So(errors.Is(err, extract.ErrSourceUnreadable), convey.ShouldBeTrue)
			})
		})
	})
}

func TestSourceSampling(t *testing.T) {
	convey.Convey("Given a 20 FPS clip of 40 frames", t, func() {
		const (
			frames = 40
			fps    = 20.0
			width  = 64
			height = 48
		)
		path := writeClip(t, frames, fps, width, height)

		src, err := video.Open(path)
		convey.So(err, convey.ShouldBeNil)
		defer src.Close()

		convey.Convey("Then the container metadata drives the stride", func() {
			convey.So(src.FPS(), convey.ShouldAlmostEqual, fps, 0.01)
			convey.So(src.Stride(), convey.ShouldEqual, 4)
			convey.So(src.Duration(), convey.ShouldAlmostEqual, 2.0, 0.05)
		})

		convey.Convey("When draining the source", func() {
			sampled := drain(t, src, width, height)

			convey.Convey("Then one frame per stride surfaces", func() {
				convey.So(sampled, convey.ShouldEqual, 10)
			})

			convey.Convey("And end of stream repeats without error", func() {
				dst := gocv.NewMat()
				defer dst.Close()

				ok, err := src.Next(&dst)
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestSourceKeepsEveryFrameOnSlowClips(t *testing.T) {
	convey.Convey("Given a clip slower than the sampling target", t, func() {
		const (
			frames = 8
			fps    = 4.0
			width  = 32
			height = 32
		)
		path := writeClip(t, frames, fps, width, height)

		src, err := video.Open(path)
		convey.So(err, convey.ShouldBeNil)
		defer src.Close()

		convey.Convey("Then the stride collapses to one", func() {
			convey.So(src.Stride(), convey.ShouldEqual, 1)
		})

		convey.Convey("When draining the source", func() {
			sampled := drain(t, src, width, height)

			convey.Convey("Then every frame surfaces", func() {
				convey.So(sampled, convey.ShouldEqual, frames)
			})
		})
	})
}

func TestSourceClose(t *testing.T) {
	convey.Convey("Given an open source", t, func() {
		path := writeClip(t, 4, 10.0, 32, 32)

		src, err := video.Open(path)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When closing it twice", func() {
			convey.So(src.Close(), convey.ShouldBeNil)
			convey.So(src.Close(), convey.ShouldBeNil)
		})

		convey.Convey("When reading after close", func() {
			convey.So(src.Close(), convey.ShouldBeNil)

			dst := gocv.NewMat()
			defer dst.Close()

			ok, err := src.Next(&dst)

			convey.Convey("Then the read fails as unreadable", func() {
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(errors.Is(err, extract.ErrSourceUnreadable), convey.ShouldBeTrue)
			})
		})
	})
}
