package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ProductScanner/internal/config"
	delivery "ProductScanner/internal/delivery/http"
	"ProductScanner/internal/domain"
	"ProductScanner/internal/infrastructure/export"
	"ProductScanner/internal/infrastructure/fetcher"
	"ProductScanner/internal/infrastructure/parser"
	"ProductScanner/internal/infrastructure/scheduler"
	"ProductScanner/internal/infrastructure/storage"
	"ProductScanner/internal/logging"
	"ProductScanner/internal/monitoring"
	"ProductScanner/internal/ports"
	"ProductScanner/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	metrics   *monitoring.Metrics
	pipeline  *usecase.Pipeline
	exporter  *export.Exporter
	repo      ports.SessionRepository
	closeRepo func() error
	sessions  *usecase.Sessions
}

// NewPipeline assembles the extraction pipeline from configuration.
func NewPipeline(cfg config.Config, logger *slog.Logger, recorder ports.Recorder) *usecase.Pipeline {
	return usecase.NewPipeline(usecase.PipelineDeps{
		Fetcher:          fetcher.NewHTTPFetcher(nil, cfg.Fetcher, logger.With("component", "fetcher")),
		Chain:            parser.NewListingChain(logger.With("component", "chain")),
		Enricher:         parser.NewDetailEnricher(logger.With("component", "enricher")),
		Recorder:         recorder,
		Logger:           logger.With("component", "pipeline"),
		EnrichmentPrefix: cfg.Extraction.EnrichmentPrefix,
		Concurrency:      cfg.Extraction.EnrichmentConcurrency,
	})
}

// New builds the application and opens the configured session store.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	metrics := monitoring.NewMetrics()
	pipeline := NewPipeline(cfg, baseLogger, metrics)

	repo, closeRepo, err := storage.Open(ctx, cfg.Storage, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	baseLogger.Info("storage ready", "driver", cfg.Storage.Driver)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		metrics:   metrics,
		pipeline:  pipeline,
		exporter:  export.NewExporter(cfg.Export.Columns),
		repo:      repo,
		closeRepo: closeRepo,
		sessions:  usecase.NewSessions(repo, pipeline, baseLogger.With("component", "sessions")),
	}, nil
}

// InitDB creates the SQL schema of the configured store.
func (a *Application) InitDB(ctx context.Context) error {
	return a.sessions.Init(ctx)
}

// MigrateFrom copies every session of a file store in dir into the configured store.
// A SQL store gets its schema created first.
func (a *Application) MigrateFrom(ctx context.Context, dir string) (usecase.MigrationReport, error) {
	if err := a.sessions.Init(ctx); err != nil && !errors.Is(err, domain.ErrStorageNotSQL) {
		return usecase.MigrationReport{}, fmt.Errorf("init schema: %w", err)
	}
	source, err := storage.NewFileRepository(dir, a.logger.With("component", "storage.file"))
	if err != nil {
		return usecase.MigrationReport{}, err
	}
	return usecase.Migrate(ctx, source, a.repo, a.logger.With("component", "migrate"))
}

// Serve runs the HTTP API and the refresh job until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	handler := delivery.NewHandler(delivery.HandlerDeps{
		Extractor: a.pipeline,
		Sessions:  a.sessions,
		Exporter:  a.exporter,
		Metrics:   a.metrics,
		Logger:    a.logger.With("component", "http"),
	})
	router := delivery.SetupRouter(a.cfg.Server, handler, a.logger.With("component", "http"))

	refresher := usecase.NewRefresher(
		scheduler.NewTickerScheduler(a.cfg.Refresh.Every(), false),
		a.sessions,
		a.logger.With("component", "refresh"),
	)
	if err := refresher.Start(ctx); err != nil {
		return fmt.Errorf("start refresher: %w", err)
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := refresher.Stop(shutdownCtx); err != nil {
		a.logger.Warn("stop refresher", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}

	a.logger.Info("http server stopped")
	return nil
}

// Close releases the session store.
func (a *Application) Close() error {
	if a.closeRepo == nil {
		return nil
	}
	return a.closeRepo()
}
