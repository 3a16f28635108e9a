package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medir/amharic-medsearch/internal/analytics"
	"github.com/medir/amharic-medsearch/internal/analytics/snapshot"
	"github.com/medir/amharic-medsearch/internal/document/source"
	"github.com/medir/amharic-medsearch/internal/evaluator"
	"github.com/medir/amharic-medsearch/internal/indexer"
	"github.com/medir/amharic-medsearch/internal/ingest"
	"github.com/medir/amharic-medsearch/internal/searcher/cache"
	"github.com/medir/amharic-medsearch/internal/searcher/executor"
	"github.com/medir/amharic-medsearch/internal/searcher/handler"
	"github.com/medir/amharic-medsearch/internal/searcher/ranker"
	"github.com/medir/amharic-medsearch/pkg/config"
	"github.com/medir/amharic-medsearch/pkg/health"
	"github.com/medir/amharic-medsearch/pkg/kafka"
	"github.com/medir/amharic-medsearch/pkg/logger"
	"github.com/medir/amharic-medsearch/pkg/metrics"
	"github.com/medir/amharic-medsearch/pkg/middleware"
	pkgredis "github.com/medir/amharic-medsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "source", cfg.Source.Kind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	src, closeSource, err := source.FromConfig(ctx, cfg)
	if err != nil {
		slog.Error("failed to open document source", "error", err)
		os.Exit(1)
	}
	defer closeSource()
	pgSource, _ := src.(*source.PostgresSource)
	if pgSource != nil {
		if err := pgSource.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare documents table", "error", err)
			os.Exit(1)
		}
	}

	docs, err := src.Load(ctx)
	if err != nil {
		slog.Error("failed to load documents", "error", err)
		os.Exit(1)
	}
	engine := indexer.NewEngine(indexer.WithMetrics(m))
	if _, err := engine.Initialize(ctx, docs); err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}

	weights, unknown := ranker.FieldWeights(cfg.Search.FieldWeights)
	if len(unknown) > 0 {
		slog.Warn("ignoring weights for unknown fields", "fields", unknown)
	}
	exec := executor.New(engine,
		executor.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxResults),
		executor.WithBM25(cfg.Search.K1, cfg.Search.B),
		executor.WithFieldWeights(weights),
		executor.WithMetrics(m),
	)

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var analyticsPublisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.AnalyticsTopic)
		defer producer.Close()
		analyticsPublisher = producer
	}
	aggregator := analytics.NewAggregator()
	collector := analytics.NewCollector(aggregator, analyticsPublisher,
		cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
	collector.Start(ctx)
	defer collector.Close()

	if pgSource != nil && cfg.Analytics.SnapshotInterval > 0 {
		snapshots := snapshot.NewStore(pgSource.Client(), "")
		if err := snapshots.EnsureSchema(ctx); err != nil {
			slog.Error("analytics snapshots disabled", "error", err)
		} else {
			go snapshots.Run(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		}
	}

	if cfg.Kafka.Enabled {
		opts := []ingest.HandlerOption{ingest.WithCollector(collector)}
		if pgSource != nil {
			opts = append(opts, ingest.WithPersister(pgSource))
		}
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.IngestTopic, ingest.HandleMessage(engine, opts...))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("ingest consumer error", "error", err)
			}
		}()
		slog.Info("ingest consumer started", "topic", cfg.Kafka.IngestTopic)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		st := engine.IndexStatistics()
		if st.DocumentCount == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index is empty"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", st.DocumentCount)}
	})
	if cfg.Redis.Enabled {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if redisClient == nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
			}
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}
	if pgSource != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pgSource.Client().Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	hOpts := []handler.Option{
		handler.WithCache(queryCache),
		handler.WithCollector(collector),
		handler.WithMetrics(m),
		handler.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		handler.WithEvaluation(evaluator.Options{
			TopK:        cfg.Evaluation.TopK,
			Concurrency: cfg.Evaluation.Concurrency,
		}),
	}
	if pgSource != nil {
		hOpts = append(hOpts, handler.WithPersister(pgSource))
	}
	h := handler.New(engine, exec, hOpts...)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		proxies, err := middleware.ParseProxies(cfg.Server.TrustedProxies)
		if err != nil {
			slog.Error("invalid server.trustedProxies", "error", err)
			os.Exit(1)
		}
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute).TrustProxies(proxies)
		go limiter.Run(ctx)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "documents", engine.IndexStatistics().DocumentCount)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
