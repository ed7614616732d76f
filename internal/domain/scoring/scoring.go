// Package scoring runs the pre-trained gradient-boosted classifier over
// aggregated clip features and normalizes its output.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/dmitryikh/leaves"

	"github.com/auticare/clipscore/internal/domain/features"
)

// Scoring constants.
const (
	maxScoreValue = 100

	// fallbackConfidence is reported when the model exposes no class
	// probabilities (single-output boosters).
	fallbackConfidence = 0.75
)

// Result contains the normalized prediction for one clip.
type Result struct {
	// Score is the model prediction clamped to [0,100].
	Score float64
	// Confidence is the maximum class probability, clamped to [0,1], or
	// the fallback when the model has no probability outputs.
	Confidence float64
}

// Scorer computes a prediction from an ordered feature vector.
type Scorer interface {
	// Score computes a prediction, honoring ctx for cancellation.
	Score(ctx context.Context, vector []float64) (Result, error)
}

// ensemble is the slice of the loaded model the scorer needs. The concrete
// implementation is a leaves XGBoost ensemble; tests substitute fakes.
type ensemble interface {
	NFeatures() int
	NOutputGroups() int
	PredictSingle(fvals []float64, nEstimators int) float64
	Predict(fvals []float64, nEstimators int, predictions []float64) error
}

// ModelScorer implements Scorer over a loaded booster. The model handle is
// immutable after construction and safe for concurrent Score calls.
type ModelScorer struct {
	model  ensemble
	name   string
	groups int
}

// NewModelScorer loads the serialized booster from path. Loading is strict:
// a missing or malformed artifact, or one trained on a different feature
// width, fails here so the process refuses to start with a broken model.
// Artifacts that declare no feature count are accepted; Score still
// validates every vector's length per call.
func NewModelScorer(path string) (*ModelScorer, error) {
	model, err := leaves.XGEnsembleFromFile(path, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, path, err)
	}

	if err := checkWidth(model.NFeatures()); err != nil {
		return nil, err
	}

	return &ModelScorer{
		model:  model,
		name:   model.Name(),
		groups: model.NOutputGroups(),
	}, nil
}

// checkWidth rejects a booster trained on a different feature width.
// Some serialized boosters omit their feature count and leaves reports
// zero for them; those load anyway, leaving Score's per-call vector
// length check as the only width guard.
func checkWidth(nf int) error {
	if nf == 0 || nf == features.VectorSize {
		return nil
	}
	return fmt.Errorf("%w: model expects %d features, pipeline produces %d",
		ErrModelLoad, nf, features.VectorSize)
}

// Name reports the loaded model flavor, e.g. "xgboost.gbtree".
func (s *ModelScorer) Name() string { return s.name }

// OutputGroups reports how many outputs one prediction produces.
func (s *ModelScorer) OutputGroups() int { return s.groups }

// Score runs inference over the vector.
//
// Multi-output boosters are treated as classifiers: the predicted class
// index becomes the raw score and the winning probability the confidence.
// Single-output boosters yield their scalar prediction with the fallback
// confidence, because no probability distribution exists to derive one.
func (s *ModelScorer) Score(ctx context.Context, vector []float64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("scoring canceled: %w", err)
	}
	if s.model == nil {
		return Result{}, ErrModelUnavailable
	}
	if len(vector) != features.VectorSize {
		return Result{}, fmt.Errorf("%w: got %d values, want %d",
			ErrInvalidVector, len(vector), features.VectorSize)
	}

	if s.groups <= 1 {
		raw := s.model.PredictSingle(vector, 0)
		return Result{
			Score:      clamp(raw, 0, maxScoreValue),
			Confidence: fallbackConfidence,
		}, nil
	}

	probs := make([]float64, s.groups)
	if err := s.model.Predict(vector, 0, probs); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	class, best := argmax(probs)
	return Result{
		Score:      clamp(float64(class), 0, maxScoreValue),
		Confidence: clamp(best, 0, 1),
	}, nil
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// argmax returns the index and value of the largest element. Ties keep the
// first occurrence, matching the training-side label decoding.
func argmax(values []float64) (int, float64) {
	idx, best := 0, values[0]
	for i, v := range values {
		if v > best {
			idx, best = i, v
		}
	}
	return idx, best
}
