package clipgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/auticare/clipscore/internal/adapters/video"
	"github.com/auticare/clipscore/internal/adapters/vision"
	"github.com/auticare/clipscore/internal/domain/extract"
	"github.com/auticare/clipscore/internal/domain/scoring"
	"github.com/auticare/clipscore/pkg/logger"
)

// report is the JSON the runner prints for one clip.
type report struct {
	Clip          string             `json:"clip"`
	SampledFrames int                `json:"sampled_frames"`
	Stride        int                `json:"stride"`
	FPS           float64            `json:"fps"`
	Features      map[string]float64 `json:"features"`
	Score         *float64           `json:"score,omitempty"`
	Confidence    *float64           `json:"confidence,omitempty"`
}

// Run extracts features from the clip at cfg.Extract with the same pipeline
// the service uses, and prints them as JSON. With a model path set, the
// features are also scored.
func Run(ctx context.Context, cfg *Config) error {
	src, err := video.Open(cfg.Extract)
	if err != nil {
		return fmt.Errorf("open clip: %w", err)
	}
	defer func() { _ = src.Close() }()

	counter, err := vision.NewHaarCounter(cfg.CascadePath)
	if err != nil {
		return fmt.Errorf("load cascade: %w", err)
	}
	defer func() { _ = counter.Close() }()

	meter := vision.NewFlowMeter()
	defer func() { _ = meter.Close() }()

	extractor := extract.New(counter, meter, extract.WithMaxSamples(cfg.MaxSamples))
	fs, sampled, err := extractor.Run(ctx, src)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	out := report{
		Clip:          cfg.Extract,
		SampledFrames: sampled,
		Stride:        src.Stride(),
		FPS:           src.FPS(),
		Features:      fs.Map(),
	}

	if cfg.ModelPath != "" {
		scorer, err := scoring.NewModelScorer(cfg.ModelPath)
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}
		res, err := scorer.Score(ctx, fs.Vector())
		if err != nil {
			return fmt.Errorf("score: %w", err)
		}
		out.Score = &res.Score
		out.Confidence = &res.Confidence
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	logger.Get().Debug(ctx, "extraction report printed", logger.String("clip", cfg.Extract))
	return nil
}
