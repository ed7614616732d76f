// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/auticare/clipscore/internal/adapters/fetch"
	"github.com/auticare/clipscore/internal/domain/extract"
	"github.com/auticare/clipscore/internal/domain/features"
	"github.com/auticare/clipscore/internal/domain/model"
	"github.com/auticare/clipscore/internal/domain/scoring"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit queues a screening request and returns the channel its
	// outcome will arrive on. false means backpressure: the queue is
	// full or the service is not accepting work.
	Submit(ctx context.Context, req model.Request) (<-chan model.Outcome, bool)

	// ModelLoaded reports whether the classifier is ready to score.
	ModelLoaded() bool
}

// Server wires HTTP routes for the screening API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	predictHandler *PredictHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		predictHandler: NewPredictHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/predict", MetricsMiddleware(RequestIDMiddleware(s.predictHandler.HandlePredict), "predict"))
	mux.Handle("/metrics", MetricsHandler())
}

// predictRequest mirrors the OpenAPI schema for POST /predict.
type predictRequest struct {
	VideoURL string `json:"video_url"`
}

func (p predictRequest) validate() error {
	raw := strings.TrimSpace(p.VideoURL)
	if raw == "" {
		return errors.New("missing video_url")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("invalid video_url; must be an absolute URL")
	}
	return nil
}

// predictResponse is the response shape for a successful screening. Only
// the behavioral features are echoed; duration and the reserved expression
// slot feed the model but are not part of the response contract.
type predictResponse struct {
	PredictionScore  float64            `json:"prediction_score"`
	Confidence       float64            `json:"confidence"`
	FeaturesDetected map[string]float64 `json:"features_detected"`
}

func newPredictResponse(fs features.FeatureSet, res scoring.Result) predictResponse {
	return predictResponse{
		PredictionScore: round2(res.Score),
		Confidence:      round3(res.Confidence),
		FeaturesDetected: map[string]float64{
			features.NameEyeContactFrequency:   round3(fs.EyeContactFrequency),
			features.NameMovementVariance:      round3(fs.MovementVariance),
			features.NameRepetitiveMotionScore: round3(fs.RepetitiveMotionScore),
			features.NameSocialEngagement:      round3(fs.SocialEngagement),
			features.NameBodyMovementPatterns:  round3(fs.BodyMovementPatterns),
		},
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// The response contract fixes precision per field: the prediction score is
// reported to two decimals, confidence and features to three.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// statusFor maps a pipeline failure onto an HTTP status and error code.
// Transport failures (fetch) stay distinguishable from deterministic content
// failures (unreadable or undecodable clips) so clients know what to retry.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, fetch.ErrBadURL):
		return http.StatusBadRequest, "bad_url"
	case errors.Is(err, fetch.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "video_too_large"
	case errors.Is(err, fetch.ErrFetch):
		return http.StatusBadGateway, "fetch_failed"
	case errors.Is(err, extract.ErrExtractionTimeout):
		return http.StatusGatewayTimeout, "extraction_timeout"
	case errors.Is(err, extract.ErrSourceUnreadable):
		return http.StatusUnprocessableEntity, "source_unreadable"
	case errors.Is(err, extract.ErrDecode):
		return http.StatusUnprocessableEntity, "decode_error"
	case errors.Is(err, extract.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity, "dimension_mismatch"
	case errors.Is(err, scoring.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "model_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
