package worker

import (
	"time"

	"github.com/auticare/clipscore/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithExtractionTimeout bounds feature extraction per clip. Zero or negative
// disables the deadline.
func WithExtractionTimeout(timeout time.Duration) Option {
	return func(w *InMemoryWorker) {
		w.extractionTimeout = timeout
	}
}
