package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/auticare/clipscore/internal/clipgen"
)

// Default generation settings.
const (
	defaultSeconds    = 10
	defaultFPS        = 30.0
	defaultWidth      = 320
	defaultHeight     = 240
	defaultMaxSamples = 1800
)

func main() {
	var (
		out        = flag.String("out", "clip.mp4", "Output clip path")
		pattern    = flag.String("pattern", clipgen.PatternStatic, "Motion pattern: static, drift, or oscillate")
		seconds    = flag.Int("seconds", defaultSeconds, "Clip length in seconds")
		fps        = flag.Float64("fps", defaultFPS, "Frame rate")
		width      = flag.Int("width", defaultWidth, "Frame width")
		height     = flag.Int("height", defaultHeight, "Frame height")
		extract    = flag.String("extract", "", "Run the pipeline on this clip instead of generating")
		cascade    = flag.String("cascade", "", "Haar cascade XML path (required with -extract)")
		model      = flag.String("model", "", "Optional model path; also scores the features")
		maxSamples = flag.Int("max-samples", defaultMaxSamples, "Sampled-frame cap")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		clipgen.ShowHelp()
		return
	}

	if err := clipgen.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg := &clipgen.Config{
		Out:         *out,
		Pattern:     *pattern,
		Seconds:     *seconds,
		FPS:         *fps,
		Width:       *width,
		Height:      *height,
		Extract:     *extract,
		CascadePath: *cascade,
		ModelPath:   *model,
		MaxSamples:  *maxSamples,
		Verbose:     *verbose,
	}
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("Invalid arguments: " + err.Error() + "\n")
		clipgen.ShowHelp()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	if cfg.Extract != "" {
		err = clipgen.Run(ctx, cfg)
	} else {
		err = clipgen.Generate(ctx, cfg)
	}
	if err != nil {
		os.Stderr.WriteString("clipgen failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
