// Package worker drains the job queue and runs the prediction pipeline:
// fetch the clip, extract its features, score them, reply to the requester.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/auticare/clipscore/internal/adapters/fetch"
	"github.com/auticare/clipscore/internal/adapters/mq/queue"
	"github.com/auticare/clipscore/internal/domain/extract"
	"github.com/auticare/clipscore/internal/domain/features"
	"github.com/auticare/clipscore/internal/domain/model"
	"github.com/auticare/clipscore/internal/domain/scoring"
	"github.com/auticare/clipscore/pkg/logger"
	"github.com/auticare/clipscore/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultExtractionTimeout = 2 * time.Minute
	workerShutdownTimeout    = 5 * time.Second
	poolShutdownTimeout      = 30 * time.Second
)

// Job abstracts what workers read off the queue.
// Using the queue.Job type for consistency.
type Job = queue.Job

// Fetcher stages a remote clip onto local disk. The returned cleanup removes
// the staged file and must be called once the clip is processed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (path string, cleanup func(), err error)
}

// Source is a frame stream the worker is responsible for closing.
type Source interface {
	extract.FrameSource
	Close() error
}

// Opener turns a staged clip into a frame source.
type Opener interface {
	Open(path string) (Source, error)
}

// Extractor reduces a frame source to the model's feature set, reporting how
// many frames it sampled.
type Extractor interface {
	Run(ctx context.Context, src extract.FrameSource) (features.FeatureSet, int, error)
}

// Scorer computes a prediction from an ordered feature vector.
type Scorer interface {
	Score(ctx context.Context, vector []float64) (scoring.Result, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs and replies with outcomes using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will finish the job in flight before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing prediction jobs.
type InMemoryWorker struct {
	queue     Queue
	fetcher   Fetcher
	opener    Opener
	extractor Extractor
	scorer    Scorer
	name      string

	// extractionTimeout bounds the decode-and-extract stage per clip.
	extractionTimeout time.Duration

	// Shutdown control
	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, fetcher Fetcher, opener Opener, extractor Extractor, scorer Scorer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:             q,
		fetcher:           fetcher,
		opener:            opener,
		extractor:         extractor,
		scorer:            scorer,
		name:              "worker", // default name
		extractionTimeout: defaultExtractionTimeout,
		shutdown:          make(chan struct{}),
		done:              make(chan struct{}),
		logger:            logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}
			w.processJob(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	w.stopOnce.Do(func() {
		close(w.shutdown)
	})

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob runs the pipeline for a single job and replies with its outcome.
func (w *InMemoryWorker) processJob(ctx context.Context, job Job) {
	start := time.Now()
	metrics.IncWorkerActive()
	defer func() {
		metrics.DecWorkerActive()
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	outcome := w.runPipeline(ctx, job.Request)
	if outcome.Err != nil {
		label := errorLabel(outcome.Err)
		metrics.RecordPrediction(label)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", label)
		w.logger.Error(ctx, "prediction failed",
			logger.String("requestID", job.Request.ID),
			logger.Error(outcome.Err),
		)
	} else {
		metrics.RecordPrediction("ok")
		metrics.RecordPredictionScore(outcome.Prediction.Score)
		metrics.RecordPredictionConfidence(outcome.Prediction.Confidence)
		w.logger.Info(ctx, "prediction complete",
			logger.String("requestID", job.Request.ID),
			logger.Float64("score", outcome.Prediction.Score),
			logger.Float64("confidence", outcome.Prediction.Confidence),
			logger.Duration("took", time.Since(start)),
		)
	}

	// Reply channels are buffered by the producer, so this never blocks. The
	// default arm guards against a misbuilt job rather than a slow reader.
	select {
	case job.Reply <- outcome:
	default:
		w.logger.Warn(ctx, "dropping outcome, reply channel unavailable",
			logger.String("requestID", job.Request.ID),
		)
	}
}

// runPipeline fetches, extracts, and scores one clip. Every staged resource
// is released before it returns, whatever the path out.
func (w *InMemoryWorker) runPipeline(ctx context.Context, req model.Request) model.Outcome {
	path, cleanup, err := w.fetcher.Fetch(ctx, req.VideoURL)
	if err != nil {
		return model.Outcome{Err: fmt.Errorf("fetch clip: %w", err)}
	}
	defer cleanup()

	src, err := w.opener.Open(path)
	if err != nil {
		return model.Outcome{Err: fmt.Errorf("open clip: %w", err)}
	}
	defer func() {
		if err := src.Close(); err != nil {
			w.logger.Warn(ctx, "closing clip source", logger.Error(err))
		}
	}()

	extractCtx := ctx
	if w.extractionTimeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, w.extractionTimeout)
		defer cancel()
	}

	extractStart := time.Now()
	fs, sampled, err := w.extractor.Run(extractCtx, src)
	metrics.RecordExtractionLatency(float64(time.Since(extractStart).Milliseconds()))
	if err != nil {
		return model.Outcome{Err: fmt.Errorf("extract features: %w", err)}
	}
	metrics.RecordFramesSampled(sampled)

	scoreStart := time.Now()
	res, err := w.scorer.Score(ctx, fs.Vector())
	metrics.RecordScoringLatency(float64(time.Since(scoreStart).Milliseconds()))
	if err != nil {
		return model.Outcome{Err: fmt.Errorf("score features: %w", err)}
	}

	return model.Outcome{Features: fs, Prediction: res}
}

// errorLabel buckets pipeline failures for the prediction and error metrics.
func errorLabel(err error) string {
	switch {
	case errors.Is(err, extract.ErrExtractionTimeout):
		return "extraction_timeout"
	case errors.Is(err, extract.ErrSourceUnreadable):
		return "source_unreadable"
	case errors.Is(err, extract.ErrDecode):
		return "decode_error"
	case errors.Is(err, extract.ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, scoring.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, scoring.ErrInvalidVector):
		return "invalid_vector"
	case errors.Is(err, fetch.ErrTooLarge):
		return "video_too_large"
	case errors.Is(err, fetch.ErrBadURL):
		return "bad_url"
	case errors.Is(err, fetch.ErrFetch):
		return "fetch_failed"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool over workers the caller has already built. Workers
// hold native vision state, so each one is constructed individually instead
// of cloned here.
func NewPool(q Queue, workers ...*InMemoryWorker) *Pool {
	pool := &Pool{
		workers: workers,
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	metrics.UpdateWorkerCount(len(workers))

	return pool
}

// Size reports how many workers the pool runs.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop stops all workers, giving each a short grace period.
func (p *Pool) Stop() {
	for _, worker := range p.workers {
		ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
		_ = worker.Shutdown(ctx)
		cancel()
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new jobs
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		if err := worker.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
