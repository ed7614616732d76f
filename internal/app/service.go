// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/auticare/clipscore/internal/adapters/fetch"
	jobqueue "github.com/auticare/clipscore/internal/adapters/mq/queue"
	workerpool "github.com/auticare/clipscore/internal/adapters/mq/worker"
	"github.com/auticare/clipscore/internal/adapters/video"
	"github.com/auticare/clipscore/internal/adapters/vision"
	"github.com/auticare/clipscore/internal/domain/extract"
	"github.com/auticare/clipscore/internal/domain/model"
	"github.com/auticare/clipscore/internal/domain/scoring"
	"github.com/auticare/clipscore/pkg/logger"
	"github.com/auticare/clipscore/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize         = 256
	defaultMaxSampledFrames  = 1800
	defaultExtractionTimeout = 2 * time.Minute
	defaultFetchTimeout      = 30 * time.Second
)

// videoOpener adapts the concrete decoder to the worker's Opener contract.
type videoOpener struct{}

func (videoOpener) Open(path string) (workerpool.Source, error) {
	src, err := video.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	return src, nil
}

// ExtractorFactory builds one worker's extractor together with a closer for
// any native state it holds. Each worker calls it once.
type ExtractorFactory func() (workerpool.Extractor, func() error, error)

// Service implements the API dependencies for the screening system.
type Service struct {
	mu sync.RWMutex

	// Core components
	jobQueue   jobqueue.Queue
	workerPool *workerpool.Pool
	scorer     scoring.Scorer
	fetcher    workerpool.Fetcher
	opener     workerpool.Opener
	extractors ExtractorFactory

	// Per-worker native vision state, closed on Stop.
	closers []func() error

	// Configuration
	cascadePath       string
	workerCount       int
	queueSize         int
	maxSampledFrames  int
	extractionTimeout time.Duration
	fetchTimeout      time.Duration
	maxVideoBytes     int64
	tempDir           string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithScorer injects the loaded classifier. The scorer is constructed once
// at startup and shared read-only across all workers.
func WithScorer(s scoring.Scorer) Option {
	return func(svc *Service) {
		svc.scorer = s
	}
}

// WithCascadePath sets where the face cascade definition is loaded from.
func WithCascadePath(path string) Option {
	return func(svc *Service) {
		if path != "" {
			svc.cascadePath = path
		}
	}
}

// WithFetcher overrides the clip downloader, for tests.
func WithFetcher(f workerpool.Fetcher) Option {
	return func(svc *Service) {
		if f != nil {
			svc.fetcher = f
		}
	}
}

// WithOpener overrides how staged clips become frame sources, for tests.
func WithOpener(o workerpool.Opener) Option {
	return func(svc *Service) {
		if o != nil {
			svc.opener = o
		}
	}
}

// WithExtractorFactory overrides per-worker extractor construction, for
// tests or alternative pipelines.
func WithExtractorFactory(f ExtractorFactory) Option {
	return func(svc *Service) {
		if f != nil {
			svc.extractors = f
		}
	}
}

// WithWorkerCount sets the number of extraction workers.
func WithWorkerCount(count int) Option {
	return func(svc *Service) {
		if count > 0 {
			svc.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the prediction job queue.
func WithQueueSize(size int) Option {
	return func(svc *Service) {
		if size > 0 {
			svc.queueSize = size
		}
	}
}

// WithMaxSampledFrames caps sampled frames per clip. Zero disables the cap.
func WithMaxSampledFrames(n int) Option {
	return func(svc *Service) {
		if n >= 0 {
			svc.maxSampledFrames = n
		}
	}
}

// WithExtractionTimeout bounds wall-clock extraction per clip.
func WithExtractionTimeout(d time.Duration) Option {
	return func(svc *Service) {
		svc.extractionTimeout = d
	}
}

// WithFetchTimeout bounds the remote clip download.
func WithFetchTimeout(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.fetchTimeout = d
		}
	}
}

// WithMaxVideoBytes caps the downloaded clip size. Zero disables the cap.
func WithMaxVideoBytes(limit int64) Option {
	return func(svc *Service) {
		if limit >= 0 {
			svc.maxVideoBytes = limit
		}
	}
}

// WithTempDir sets where downloaded clips are staged.
func WithTempDir(dir string) Option {
	return func(svc *Service) {
		svc.tempDir = dir
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(svc *Service) {
		if logger != nil {
			svc.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cascadePath:       "models/haarcascade_frontalface_default.xml",
		workerCount:       runtime.NumCPU(),
		queueSize:         defaultQueueSize,
		maxSampledFrames:  defaultMaxSampledFrames,
		extractionTimeout: defaultExtractionTimeout,
		fetchTimeout:      defaultFetchTimeout,
		logger:            nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components. Each worker gets its
// own cascade and flow buffers because the native detector state is not safe
// for concurrent use; the scorer is shared since it is read-only.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.scorer == nil {
		return fmt.Errorf("%w: no scorer configured", scoring.ErrModelUnavailable)
	}

	s.logger.Info(ctx, "starting screening service...")

	if s.fetcher == nil {
		s.fetcher = fetch.NewDownloader(
			fetch.WithTimeout(s.fetchTimeout),
			fetch.WithMaxBytes(s.maxVideoBytes),
			fetch.WithTempDir(s.tempDir),
		)
	}
	if s.opener == nil {
		s.opener = videoOpener{}
	}
	if s.extractors == nil {
		s.extractors = s.visionExtractors
	}

	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)

	workers := make([]*workerpool.InMemoryWorker, 0, s.workerCount)
	for i := 0; i < s.workerCount; i++ {
		extractor, closer, err := s.extractors()
		if err != nil {
			s.closeVision()
			_ = s.jobQueue.Close()
			return fmt.Errorf("build extractor: %w", err)
		}
		if closer != nil {
			s.closers = append(s.closers, closer)
		}

		workers = append(workers, workerpool.NewInMemoryWorker(
			s.jobQueue, s.fetcher, s.opener, extractor, s.scorer,
			workerpool.WithName(fmt.Sprintf("worker-%d", i)),
			workerpool.WithExtractionTimeout(s.extractionTimeout),
		))
	}

	s.workerPool = workerpool.NewPool(s.jobQueue, workers...)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "screening service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxSampledFrames", s.maxSampledFrames),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping screening service...")

	// Close the queue first so workers drain and exit
	if s.jobQueue != nil {
		_ = s.jobQueue.Close()
	}

	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	// Native vision state is released only after the workers stopped
	s.closeVision()

	s.started = false
	s.logger.Info(ctx, "screening service stopped")
}

// visionExtractors is the production ExtractorFactory: a Haar counter and
// flow meter pair per worker, since the native state is not shareable.
func (s *Service) visionExtractors() (workerpool.Extractor, func() error, error) {
	counter, err := vision.NewHaarCounter(s.cascadePath)
	if err != nil {
		return nil, nil, fmt.Errorf("load cascade: %w", err)
	}
	meter := vision.NewFlowMeter()

	extractor := extract.New(counter, meter,
		extract.WithMaxSamples(s.maxSampledFrames),
	)
	closer := func() error {
		_ = counter.Close()
		return meter.Close()
	}
	return extractor, closer, nil
}

// closeVision releases per-worker cascade and flow buffers.
func (s *Service) closeVision() {
	for _, c := range s.closers {
		_ = c()
	}
	s.closers = nil
}

// Submit queues a screening request. The returned channel receives exactly
// one outcome; false means the queue rejected the job (full or not started).
func (s *Service) Submit(ctx context.Context, req model.Request) (<-chan model.Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, false
	}

	reply := make(chan model.Outcome, 1)
	if !s.jobQueue.Enqueue(ctx, jobqueue.Job{Request: req, Reply: reply}) {
		return nil, false
	}

	s.logger.Debug(ctx, "request enqueued",
		logger.String("requestID", req.ID),
		logger.String("videoURL", req.VideoURL),
	)
	return reply, true
}

// ModelLoaded reports whether a classifier is wired and ready to score.
func (s *Service) ModelLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && s.scorer != nil
}

// Stats snapshots the pipeline state for the stats endpoint and refreshes
// the queue and worker gauges along the way.
func (s *Service) Stats() model.ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.ServiceStats{
		Started:          s.started,
		ModelLoaded:      s.scorer != nil,
		WorkerCount:      s.workerCount,
		QueueCapacity:    s.queueSize,
		MaxSampledFrames: s.maxSampledFrames,
	}

	if s.started {
		stats.QueueLength = s.jobQueue.Len(context.Background())

		metrics.UpdateQueueSize(stats.QueueLength)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
