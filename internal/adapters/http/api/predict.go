// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/auticare/clipscore/internal/domain/model"
	"github.com/auticare/clipscore/pkg/logger"
)

// PredictHandler handles screening requests.
type PredictHandler struct {
	deps Dependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandlePredict handles POST /predict requests. The request is queued for a
// worker and the handler blocks until the outcome arrives or the client
// goes away; backpressure is an immediate 429, not a wait.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if !h.deps.ModelLoaded() {
		writeError(w, http.StatusServiceUnavailable, "model_unavailable", NewKind(op, ErrModelNotReady))
		return
	}

	request := model.Request{
		ID:         requestID(r),
		VideoURL:   req.VideoURL,
		EnqueuedAt: time.Now(),
	}

	reply, ok := h.deps.Submit(r.Context(), request)
	if !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}

	select {
	case outcome := <-reply:
		if outcome.Err != nil {
			status, code := statusFor(outcome.Err)
			writeError(w, status, code, outcome.Err)
			return
		}
		writeJSON(w, http.StatusOK, newPredictResponse(outcome.Features, outcome.Prediction))
	case <-r.Context().Done():
		// The client disconnected; the worker still finishes the job and
		// its reply lands in the buffered channel.
		logger.Get().Warn(r.Context(), "client gone before outcome",
			logger.String("requestID", request.ID))
		writeError(w, http.StatusServiceUnavailable, "canceled", r.Context().Err())
	}
}

// requestID returns the id the middleware attached, or mints one for
// handlers invoked without it.
func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
