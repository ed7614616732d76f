// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/auticare/clipscore/internal/domain/features"
	"github.com/auticare/clipscore/internal/domain/scoring"
)

// Request represents one screening request submitted by clients.
// Fields mirror the OpenAPI schema for /predict.
type Request struct {
	ID         string    // unique id assigned at ingestion
	VideoURL   string    // where the clip is fetched from
	EnqueuedAt time.Time // when the request entered the queue
}

// Outcome carries everything one processed request produced. Err is set when
// the pipeline failed; the remaining fields are then zero.
type Outcome struct {
	Features   features.FeatureSet
	Prediction scoring.Result
	Err        error
}
