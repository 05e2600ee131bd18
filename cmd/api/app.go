package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/scholarnet/reco/internal/api/handlers"
	"github.com/scholarnet/reco/internal/api/middleware"
	"github.com/scholarnet/reco/internal/cache"
	"github.com/scholarnet/reco/internal/config"
	"github.com/scholarnet/reco/internal/embeddings"
	"github.com/scholarnet/reco/internal/jobs"
	"github.com/scholarnet/reco/internal/observability"
	"github.com/scholarnet/reco/internal/repository"
	"github.com/scholarnet/reco/internal/service"
	"github.com/scholarnet/reco/internal/similarity"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

var errUnsupportedEmbeddingProvider = errors.New("unsupported embedding provider")

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	river          *river.Client[pgx.Tx]
	meterProvider  observability.MeterProviderShutdown
	tracerProvider *sdktrace.TracerProvider
}

// newEmbeddingClient builds the provider adapter selected by EMBEDDING_PROVIDER.
// "local" is the deterministic fallback and needs no credentials.
func newEmbeddingClient(ctx context.Context, cfg *config.Config) (embeddings.Client, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderOpenAI:
		return embeddings.NewOpenAIClient(cfg.EmbeddingProviderAPIKey,
			embeddings.WithOpenAIModel(cfg.EmbeddingModel),
			embeddings.WithOpenAIDimensions(cfg.EmbeddingDimensions),
		), nil
	case config.EmbeddingProviderGoogle:
		return embeddings.NewGoogleClient(ctx, cfg.EmbeddingProviderAPIKey,
			embeddings.WithGoogleModel(cfg.EmbeddingModel),
			embeddings.WithGoogleDimensions(cfg.EmbeddingDimensions),
		)
	case config.EmbeddingProviderLocal, "":
		return embeddings.NewLocalClientWithDimensions(cfg.EmbeddingDimensions), nil
	case config.EmbeddingProviderCustom:
		return embeddings.NewCustomClient(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEmbeddingProvider, cfg.EmbeddingProvider)
	}
}

// NewApp builds and wires all components. It does not start the HTTP server or
// River; call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool, logger *slog.Logger) (*App, error) {
	var (
		meterProvider    observability.MeterProviderShutdown
		metricsHandler   http.Handler
		recoMetrics      observability.RecoMetrics
		embeddingMetrics observability.EmbeddingMetrics
		err              error
	)

	if cfg.OtelMetricsExporter == "prometheus" {
		meterProvider, metricsHandler, recoMetrics, embeddingMetrics, err = observability.NewMeterProvider(
			ctx, observability.MeterProviderConfig{},
		)
		if err != nil {
			return nil, fmt.Errorf("create meter provider: %w", err)
		}
	} else {
		logger.Warn("metrics not enabled (OTEL_METRICS_EXPORTER is not \"prometheus\")")
	}

	tracerProvider, err := observability.NewTracerProvider(ctx, cfg.OtelTracesExporter, "")
	if err != nil {
		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	embeddingClient, err := newEmbeddingClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("embedding provider configured",
		"provider", cfg.EmbeddingProvider, "model", cfg.EmbeddingModel, "dimensions", cfg.EmbeddingDimensions)

	contentRepo := repository.NewContentRepository(db)
	embeddingsRepo := repository.NewEmbeddingsRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	experimentsRepo := repository.NewExperimentsRepository(db)
	sessionsRepo := repository.NewSessionsRepository(db)

	store := service.NewEmbeddingStore(service.EmbeddingStoreParams{
		Repo:     embeddingsRepo,
		Content:  contentRepo,
		Provider: embeddingClient,
		Model:    cfg.EmbeddingModel,
		Timeout:  cfg.EmbeddingTimeout,
		Logger:   logger,
	})

	engine := similarity.NewEngine(embeddingsRepo, cfg.EmbeddingModel, cfg.MinSimilarity)

	scorer := service.NewScorer(service.ScorerParams{
		Content:  contentRepo,
		Feedback: feedbackRepo,
		Store:    store,
		Engine:   engine,
		Logger:   logger,
	})

	recoCache, err := cache.NewRecoCache(cfg.RecoCacheSize, cfg.RecoCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("create recommendation cache: %w", err)
	}

	tracker := service.NewExperimentTracker(service.ExperimentTrackerParams{
		Repo:           experimentsRepo,
		Variant:        cfg.RankerVariant,
		RolloutPercent: cfg.RankerRolloutPercent,
		Logger:         logger,
	})

	recoService := service.NewRecommendationService(service.RecommendationServiceParams{
		Scorer:  scorer,
		Mixer:   service.NewMixer(),
		Cache:   recoCache,
		Metrics: recoMetrics,
		Logger:  logger,
		Variant: cfg.RankerVariant,
	})

	feedbackService := service.NewFeedbackService(service.FeedbackServiceParams{
		Repo:    feedbackRepo,
		Cache:   recoCache,
		Tracker: tracker,
		Metrics: recoMetrics,
		Logger:  logger,
	})

	discoverService := service.NewDiscoverService(contentRepo, logger)

	relatedService := service.NewRelatedService(service.RelatedServiceParams{
		Embeddings: embeddingsRepo,
		Engine:     engine,
		Model:      cfg.EmbeddingModel,
		Logger:     logger,
	})

	backfillWorker := jobs.NewBackfillWorker(jobs.BackfillWorkerDeps{
		Store:       store,
		RateLimiter: rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1),
		Metrics:     embeddingMetrics,
		Logger:      logger,
	})

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, backfillWorker)

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			jobs.QueueEmbeddings: {MaxWorkers: cfg.EmbeddingMaxConcurrent},
		},
		Workers:      riverWorkers,
		ErrorHandler: &jobs.ErrorHandler{},
	})
	if err != nil {
		return nil, fmt.Errorf("create River client: %w", err)
	}

	recoHandler := handlers.NewRecommendationsHandler(recoService, tracker, discoverService, relatedService)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackService)
	healthHandler := handlers.NewHealthHandler(db)

	server := newHTTPServer(cfg, logger, sessionsRepo, tracerProvider,
		recoHandler, feedbackHandler, healthHandler, metricsHandler)

	return &App{
		cfg:            cfg,
		db:             db,
		server:         server,
		river:          riverClient,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
	}, nil
}

// newHTTPServer builds the HTTP server and muxes (no auth on /health and
// /metrics, session auth on /v1/). Handler chain: RequestID ->
// otelhttp(Logging(mux)) so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	logger *slog.Logger,
	sessions *repository.SessionsRepository,
	tracerProvider *sdktrace.TracerProvider,
	reco *handlers.RecommendationsHandler,
	feedback *handlers.FeedbackHandler,
	health *handlers.HealthHandler,
	metricsHandler http.Handler,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", health.Check)

	if metricsHandler != nil {
		public.Handle("GET /metrics", metricsHandler)
	}

	protected := http.NewServeMux()
	protected.HandleFunc("GET /v1/recommendations", reco.Get)
	protected.HandleFunc("GET /v1/recommendations/discover", reco.Discover)
	protected.HandleFunc("GET /v1/recommendations/related", reco.Related)
	protected.HandleFunc("POST /v1/recommendations/feedback", feedback.Submit)
	protected.HandleFunc("GET /v1/recommendations/feedback", feedback.List)

	protectedWithAuth := middleware.Auth(sessions)(protected)
	mux := http.NewServeMux()
	mux.Handle("/v1/", middleware.MaxBody(maxRequestBodyBytes)(protectedWithAuth))
	mux.Handle("/", public)

	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health and metrics scrapes.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log.
	inner := middleware.Logging(logger)(mux)
	handler := otelhttp.NewHandler(inner, "reco-api", otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 15 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, then blocks until ctx is cancelled
// (e.g. signal) or a component fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	go func() {
		if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
			select {
			case runErr <- fmt.Errorf("river: %w", err):
			default:
			}
		}
	}()

	go func() {
		slog.Info("starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// Shutdown stops the server, River, and observability in order. Call after Run returns.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		if a.tracerProvider != nil {
			if obsErr := observability.ShutdownTracerProvider(ctx, a.tracerProvider); obsErr != nil {
				if err == nil {
					err = obsErr
				} else {
					slog.Error("shutdown tracer provider", "error", obsErr)
				}
			}
		}

		if a.meterProvider != nil {
			if obsErr := a.meterProvider.Shutdown(ctx); obsErr != nil {
				if err == nil {
					err = obsErr
				} else {
					slog.Error("shutdown meter provider", "error", obsErr)
				}
			}
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.river.Stop(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if err = a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
