package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	api "github.com/auticare/clipscore/internal/adapters/http/api"
	"github.com/auticare/clipscore/internal/domain/extract"
	"github.com/auticare/clipscore/internal/domain/features"
	"github.com/auticare/clipscore/internal/domain/model"
	"github.com/auticare/clipscore/internal/domain/scoring"
	logging "github.com/auticare/clipscore/pkg/logger"
)

// mockDeps scripts the service behind the handlers.
type mockDeps struct {
	outcome     model.Outcome
	backpressed bool
	modelLoaded bool
	submitted   []model.Request
}

func (m *mockDeps) Submit(_ context.Context, req model.Request) (<-chan model.Outcome, bool) {
	if m.backpressed {
		return nil, false
	}
	m.submitted = append(m.submitted, req)
	reply := make(chan model.Outcome, 1)
	reply <- m.outcome
	return reply, true
}

func (m *mockDeps) ModelLoaded() bool { return m.modelLoaded }

func (m *mockDeps) Stats() model.ServiceStats {
	return model.ServiceStats{
		Started:       true,
		ModelLoaded:   m.modelLoaded,
		WorkerCount:   4,
		QueueCapacity: 256,
		QueueLength:   3,
	}
}

func newTestServer(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return mux
}

func postPredict(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlePredict(t *testing.T) {
	convey.Convey("Given a predict endpoint backed by a scripted service", t, func() {
		_ = logging.Init()

		happy := &mockDeps{
			modelLoaded: true,
			outcome: model.Outcome{
				Features: features.FeatureSet{
					EyeContactFrequency:   0.5,
					MovementVariance:      0.12345,
					RepetitiveMotionScore: 0.25,
					SocialEngagement:      0.375,
					BodyMovementPatterns:  1.5,
					DurationSeconds:       10,
				},
				Prediction: scoring.Result{Score: 42.1239, Confidence: 0.8456},
			},
		}

		convey.Convey("When a valid request succeeds", func() {
			rec := postPredict(newTestServer(happy), `{"video_url":"https://clips.example.com/a.mp4"}`)

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			var resp struct {
				PredictionScore  float64            `json:"prediction_score"`
				Confidence       float64            `json:"confidence"`
				FeaturesDetected map[string]float64 `json:"features_detected"`
			}
			convey.So(json.Unmarshal(rec.Body.Bytes(), &resp), convey.ShouldBeNil)

			convey.Convey("Then the score is rounded to two decimals and confidence to three", func() {
				convey.So(resp.PredictionScore, convey.ShouldEqual, 42.12)
				convey.So(resp.Confidence, convey.ShouldEqual, 0.846)
			})

			convey.Convey("And only the five behavioral features are echoed", func() {
				convey.So(len(resp.FeaturesDetected), convey.ShouldEqual, 5)
				convey.So(resp.FeaturesDetected["eye_contact_frequency"], convey.ShouldEqual, 0.5)
				convey.So(resp.FeaturesDetected["movement_variance"], convey.ShouldEqual, 0.123)
				convey.So(resp.FeaturesDetected["repetitive_motion_score"], convey.ShouldEqual, 0.25)
				convey.So(resp.FeaturesDetected["social_engagement"], convey.ShouldEqual, 0.375)
				convey.So(resp.FeaturesDetected["body_movement_patterns"], convey.ShouldEqual, 1.5)
				_, hasDuration := resp.FeaturesDetected["duration_seconds"]
				convey.So(hasDuration, convey.ShouldBeFalse)
			})

			convey.Convey("And the submitted request carries an id and the url", func() {
				convey.So(len(happy.submitted), convey.ShouldEqual, 1)
				convey.So(happy.submitted[0].ID, convey.ShouldNotBeEmpty)
				convey.So(happy.submitted[0].VideoURL, convey.ShouldEqual, "https://clips.example.com/a.mp4")
			})

			convey.Convey("And a request id header is echoed", func() {
				convey.So(rec.Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When the body is not JSON", func() {
			rec := postPredict(newTestServer(happy), `not json`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When video_url is missing", func() {
			rec := postPredict(newTestServer(happy), `{}`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When video_url is not absolute", func() {
			rec := postPredict(newTestServer(happy), `{"video_url":"clip.mp4"}`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the method is GET", func() {
			req := httptest.NewRequest(http.MethodGet, "/predict", nil)
			rec := httptest.NewRecorder()
			newTestServer(happy).ServeHTTP(rec, req)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("When the model is not loaded", func() {
			deps := &mockDeps{modelLoaded: false}
			rec := postPredict(newTestServer(deps), `{"video_url":"https://clips.example.com/a.mp4"}`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
		})

		convey.Convey("When the queue is full", func() {
			deps := &mockDeps{modelLoaded: true, backpressed: true}
			rec := postPredict(newTestServer(deps), `{"video_url":"https://clips.example.com/a.mp4"}`)

			convey.So(rec.Code, convey.ShouldEqual, http.StatusTooManyRequests)
			var resp struct {
				Code string `json:"code"`
			}
			convey.So(json.Unmarshal(rec.Body.Bytes(), &resp), convey.ShouldBeNil)
			convey.So(resp.Code, convey.ShouldEqual, "backpressure")
		})
	})
}

func TestPredictErrorMapping(t *testing.T) {
	convey.Convey("Given pipeline failures of each kind", t, func() {
		_ = logging.Init()

		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("fetch clip: %w", extract.ErrSourceUnreadable), http.StatusUnprocessableEntity, "source_unreadable"},
			{fmt.Errorf("extract: %w", extract.ErrDecode), http.StatusUnprocessableEntity, "decode_error"},
			{fmt.Errorf("extract: %w", extract.ErrDimensionMismatch), http.StatusUnprocessableEntity, "dimension_mismatch"},
			{fmt.Errorf("extract: %w", extract.ErrExtractionTimeout), http.StatusGatewayTimeout, "extraction_timeout"},
			{fmt.Errorf("score: %w", scoring.ErrModelUnavailable), http.StatusServiceUnavailable, "model_unavailable"},
			{fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
		}

		for _, tc := range cases {
			deps := &mockDeps{modelLoaded: true, outcome: model.Outcome{Err: tc.err}}
			rec := postPredict(newTestServer(deps), `{"video_url":"https://clips.example.com/a.mp4"}`)

			convey.Convey(fmt.Sprintf("Then %q maps to %d/%s", tc.err, tc.status, tc.code), func() {
				convey.So(rec.Code, convey.ShouldEqual, tc.status)
				var resp struct {
					Code string `json:"code"`
				}
				convey.So(json.Unmarshal(rec.Body.Bytes(), &resp), convey.ShouldBeNil)
				convey.So(resp.Code, convey.ShouldEqual, tc.code)
			})
		}
	})
}

func TestHandleHealth(t *testing.T) {
	convey.Convey("Given the health endpoint", t, func() {
		_ = logging.Init()

		convey.Convey("When the model is loaded", func() {
			mux := newTestServer(&mockDeps{modelLoaded: true})
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			var resp struct {
				Status      string `json:"status"`
				ModelLoaded bool   `json:"model_loaded"`
			}
			convey.So(json.Unmarshal(rec.Body.Bytes(), &resp), convey.ShouldBeNil)
			convey.So(resp.Status, convey.ShouldEqual, "healthy")
			convey.So(resp.ModelLoaded, convey.ShouldBeTrue)
		})

		convey.Convey("When the model is not loaded", func() {
			mux := newTestServer(&mockDeps{modelLoaded: false})
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			var resp struct {
				ModelLoaded bool `json:"model_loaded"`
			}
			convey.So(json.Unmarshal(rec.Body.Bytes(), &resp), convey.ShouldBeNil)
			convey.So(resp.ModelLoaded, convey.ShouldBeFalse)
		})
	})
}

func TestHandleStats(t *testing.T) {
	convey.Convey("Given the stats endpoint", t, func() {
		_ = logging.Init()
		mux := newTestServer(&mockDeps{modelLoaded: true})

		convey.Convey("When stats are requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			var stats model.ServiceStats
			convey.So(json.Unmarshal(rec.Body.Bytes(), &stats), convey.ShouldBeNil)
			convey.So(stats.Started, convey.ShouldBeTrue)
			convey.So(stats.ModelLoaded, convey.ShouldBeTrue)
			convey.So(stats.WorkerCount, convey.ShouldEqual, 4)
			convey.So(stats.QueueCapacity, convey.ShouldEqual, 256)
			convey.So(stats.QueueLength, convey.ShouldEqual, 3)
		})

		convey.Convey("When the raw body is inspected", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"queue_length":3`)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"model_loaded":true`)
		})

		convey.Convey("When the method is POST", func() {
			req := httptest.NewRequest(http.MethodPost, "/stats", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestMetricsEndpoint(t *testing.T) {
	convey.Convey("Given the metrics endpoint", t, func() {
		_ = logging.Init()
		mux := newTestServer(&mockDeps{})

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		convey.Convey("Then the custom registry is exposed", func() {
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, "clipscore")
		})
	})
}
