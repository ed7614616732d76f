package service_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/auticare/clipscore/internal/app"
	"github.com/auticare/clipscore/internal/domain/model"
	"github.com/auticare/clipscore/internal/domain/scoring"
	"github.com/auticare/clipscore/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.Stats()
			So(stats.Started, ShouldBeFalse)
			So(stats.ModelLoaded, ShouldBeFalse)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(512),
			service.WithMaxSampledFrames(600),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.Stats()
			So(stats.WorkerCount, ShouldEqual, 8)
			So(stats.QueueCapacity, ShouldEqual, 512)
			So(stats.MaxSampledFrames, ShouldEqual, 600)
		})
	})
}

func TestService_StartFailures(t *testing.T) {
	Convey("Given a service without a scorer", t, func() {
		svc := service.New()

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then it should refuse to start", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, scoring.ErrModelUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestService_SubmitBeforeStart(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("When submitting a request", func() {
			reply, ok := svc.Submit(context.Background(), model.Request{ID: "r1", VideoURL: "https://example.com/a.mp4"})

			Convey("Then the submission is rejected", func() {
				So(ok, ShouldBeFalse)
				So(reply, ShouldBeNil)
			})
		})

		Convey("Then the model is reported as not loaded", func() {
			So(svc.ModelLoaded(), ShouldBeFalse)
		})

		Convey("And stopping is a no-op", func() {
			So(svc.Stop, ShouldNotPanic)
		})
	})
}
