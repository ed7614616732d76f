package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/auticare/clipscore/internal/adapters/http/api"
	"github.com/auticare/clipscore/internal/adapters/http/swagger"
	app "github.com/auticare/clipscore/internal/app"
	"github.com/auticare/clipscore/internal/config"
	"github.com/auticare/clipscore/internal/domain/scoring"
	"github.com/auticare/clipscore/pkg/logger"
	"github.com/auticare/clipscore/pkg/metrics"
)

// HTTP server timeout constants. Write timeout is generous because /predict
// holds the connection open for the whole extraction.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 5 * time.Minute
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Load the classifier before anything serves: a process without a
	// model must refuse to start, not fail per request.
	scorer, err := scoring.NewModelScorer(cfg.ModelPath)
	if err != nil {
		loggerInstance.Error(ctx, "failed to load model", logger.String("path", cfg.ModelPath), logger.Error(err))
		return
	}
	metrics.UpdateModelLoaded(true)
	loggerInstance.Info(ctx, "model loaded",
		logger.String("path", cfg.ModelPath),
		logger.String("flavor", scorer.Name()),
		logger.Int("outputGroups", scorer.OutputGroups()),
	)

	// Create and start the service with configuration options. Start
	// loads the per-worker face cascades and fails fast if they are
	// missing or corrupt.
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithScorer(scorer),
		app.WithCascadePath(cfg.CascadePath),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMaxSampledFrames(cfg.MaxSampledFrames),
		app.WithExtractionTimeout(time.Duration(cfg.ExtractionTimeoutMS)*time.Millisecond),
		app.WithFetchTimeout(time.Duration(cfg.FetchTimeoutMS)*time.Millisecond),
		app.WithMaxVideoBytes(cfg.MaxVideoBytes),
		app.WithTempDir(cfg.TempDir),
	)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API documentation routes
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           cors.AllowAll().Handler(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Get().Warn(ctx, "process handle unavailable; system metrics limited", logger.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics(proc)
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates process-level gauges. The OS view (RSS, CPU)
// comes from gopsutil; allocation and GC detail from the Go runtime.
func updateSystemMetrics(proc *process.Process) {
	if proc != nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			metrics.UpdateSystemMemoryUsage(mem.RSS)
		}
		if cpu, err := proc.Percent(0); err == nil {
			metrics.UpdateSystemCPUPercent(cpu)
		}
	}

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes queue and worker gauges from the service.
func updateServiceMetrics(svc *app.Service) {
	// Stats updates the queue and worker gauges as a side effect.
	_ = svc.Stats()
}
