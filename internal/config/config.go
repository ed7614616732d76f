// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - All functions accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error kinds.
package config

import (
	"context"
	"runtime"
)

// Default budgets for clip processing.
const (
	defaultQueueSize           = 256
	defaultMaxSampledFrames    = 1800 // ~6 minutes of clip at 5 Hz sampling
	defaultExtractionTimeoutMS = 120_000
	defaultFetchTimeoutMS      = 30_000
	defaultMaxVideoBytes       = 200 << 20
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8001".
	Addr string `koanf:"addr"`

	// ModelPath locates the serialized gradient-boosted classifier.
	ModelPath string `koanf:"model_path"`

	// CascadePath locates the Haar cascade XML used for face detection.
	CascadePath string `koanf:"cascade_path"`

	// WorkerCount sets the number of extraction workers. Extraction is
	// CPU-bound, so this also bounds concurrent decodes.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory prediction job queue.
	QueueSize int `koanf:"queue_size"`

	// MaxSampledFrames caps how many frames a single clip may contribute.
	// Zero disables the cap.
	MaxSampledFrames int `koanf:"max_sampled_frames"`

	// ExtractionTimeoutMS bounds wall-clock time for one clip's extraction.
	ExtractionTimeoutMS int `koanf:"extraction_timeout_ms"`

	// FetchTimeoutMS bounds the remote clip download.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// MaxVideoBytes caps the downloaded clip size.
	MaxVideoBytes int64 `koanf:"max_video_bytes"`

	// TempDir is where downloaded clips are staged. Empty means the
	// system temp directory.
	TempDir string `koanf:"temp_dir"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:            "info",
		Addr:                ":8001",
		ModelPath:           "models/behavioral_classifier.xgb",
		CascadePath:         "models/haarcascade_frontalface_default.xml",
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           defaultQueueSize,
		MaxSampledFrames:    defaultMaxSampledFrames,
		ExtractionTimeoutMS: defaultExtractionTimeoutMS,
		FetchTimeoutMS:      defaultFetchTimeoutMS,
		MaxVideoBytes:       defaultMaxVideoBytes,
		TempDir:             "",
	}
	return c
}
