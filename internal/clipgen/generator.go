package clipgen

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/auticare/clipscore/pkg/logger"
)

// Block geometry for the moving patterns, relative to frame size.
const (
	blockFraction    = 0.2
	oscillatePeriodS = 2.0
)

// Generate writes a synthetic MJPG clip at cfg.Out. The patterns target the
// pipeline's statistics: static clips should measure zero motion, drift a
// steady magnitude, oscillate a periodic one that the autocorrelation score
// picks up.
func Generate(ctx context.Context, cfg *Config) error {
	writer, err := gocv.VideoWriterFile(cfg.Out, "MJPG", cfg.FPS, cfg.Width, cfg.Height, true)
	if err != nil {
		return fmt.Errorf("open writer: %w", err)
	}
	defer func() { _ = writer.Close() }()
	if !writer.IsOpened() {
		return fmt.Errorf("writer not opened for %s", cfg.Out)
	}

	frame := gocv.NewMatWithSize(cfg.Height, cfg.Width, gocv.MatTypeCV8UC3)
	defer func() { _ = frame.Close() }()

	total := int(float64(cfg.Seconds) * cfg.FPS)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("generation canceled: %w", err)
		}
		if err := renderFrame(&frame, cfg, i); err != nil {
			return err
		}
		if err := writer.Write(frame); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}

	logger.Get().Info(ctx, "clip generated",
		logger.String("out", cfg.Out),
		logger.String("pattern", cfg.Pattern),
		logger.Int("frames", total),
		logger.Float64("fps", cfg.FPS),
	)
	return nil
}

// renderFrame paints frame i of the configured pattern.
func renderFrame(frame *gocv.Mat, cfg *Config, i int) error {
	background := color.RGBA{R: 40, G: 40, B: 40, A: 0}
	full := image.Rect(0, 0, cfg.Width, cfg.Height)
	if err := gocv.Rectangle(frame, full, background, -1); err != nil {
		return fmt.Errorf("fill background: %w", err)
	}
	if cfg.Pattern == PatternStatic {
		return nil
	}

	block := int(float64(cfg.Width) * blockFraction)
	travel := cfg.Width - block
	var x int
	switch cfg.Pattern {
	case PatternDrift:
		x = (i * 2) % travel
	case PatternOscillate:
		phase := 2 * math.Pi * float64(i) / (oscillatePeriodS * cfg.FPS)
		x = int((math.Sin(phase) + 1) / 2 * float64(travel))
	}

	y := (cfg.Height - block) / 2
	white := color.RGBA{R: 255, G: 255, B: 255, A: 0}
	if err := gocv.Rectangle(frame, image.Rect(x, y, x+block, y+block), white, -1); err != nil {
		return fmt.Errorf("draw block: %w", err)
	}
	return nil
}
