package di

import (
	"context"
	"fmt"
	"time"

	drepo "SetupScan/internal/domain/repository"
	domsvc "SetupScan/internal/domain/service"
	"SetupScan/internal/handler/api"
	internalrepo "SetupScan/internal/repository"
	"SetupScan/internal/service/finnhub"
	"SetupScan/internal/service/ratelimit"
	"SetupScan/internal/services/analysis"
	"SetupScan/internal/usecase"
	"SetupScan/pkg/cache"
	pkgch "SetupScan/pkg/clickhouse"
	"SetupScan/pkg/config"
	xhttp "SetupScan/pkg/http"
	pkgkafka "SetupScan/pkg/kafka"
	applogger "SetupScan/pkg/logger"
	"SetupScan/pkg/metrics"
	"SetupScan/pkg/postgres"
	"SetupScan/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideLifetime creates the context background scans run under.
func ProvideLifetime() *server.Lifetime {
	return server.NewLifetime()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers...),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, int64(cfg.Kafka.Producer.BatchBytes), cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithKeyedPartitioning(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger. Aggregated logs are shipped to Kafka when the collector is on.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logger.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logger.Collector.Interval,
			CountThreshold: cfg.Logger.Collector.Threshold,
			Topic:          cfg.Logger.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideLimiter creates the token buckets shared by the Finnhub client and the probe route.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideMarketData creates the Finnhub REST client.
func ProvideMarketData(cfg *config.Config, limiter *ratelimit.Limiter, l *applogger.Logger) drepo.MarketData {
	if cfg.Finnhub.APIKey == "" {
		l.Warn("finnhub api key is empty, every symbol will be unavailable")
	}
	return finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL, cfg.Finnhub.Timeout,
		finnhub.WithRateLimit(limiter, cfg.Finnhub.RateLimit.Capacity, cfg.Finnhub.RateLimit.RefillPerSec),
		finnhub.WithRetries(cfg.Finnhub.Retries),
		finnhub.WithOptions(cfg.Finnhub.Options),
	)
}

// ProvideAnalyzer creates the per-symbol analysis engine.
func ProvideAnalyzer(cfg *config.Config, data drepo.MarketData, l *applogger.Logger) domsvc.Analyzer {
	return analysis.NewEngine(data,
		analysis.WithResolution(drepo.NormalizeResolution(cfg.Finnhub.Resolution)),
		analysis.WithLookback(time.Duration(cfg.Finnhub.LookbackDays)*24*time.Hour),
		analysis.WithMinBars(cfg.Analysis.MinBars),
		analysis.WithOptionChain(cfg.Finnhub.Options),
		analysis.WithLogger(l.With(applogger.String("component", "analysis"))),
	)
}

// ProvideCache creates an in-memory cache, layered over Redis when Redis is enabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	}
	remote, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		cache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
		cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdle),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(remote,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredL1TTL(cfg.Cache.L1TTL),
	), nil
}

// ProvideArchive opens the configured history archive and creates its schema. Type "none" yields nil.
func ProvideArchive(life *server.Lifetime, cfg *config.Config, l *applogger.Logger) (drepo.Archive, error) {
	var (
		archive drepo.Archive
		err     error
	)
	switch cfg.Archive.Type {
	case "clickhouse":
		archive, err = newClickHouseArchive(cfg, l)
	case "postgres":
		archive, err = newPostgresArchive(life.Context(), cfg, l)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(life.Context(), initTimeout)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		_ = archive.Close()
		return nil, fmt.Errorf("%s schema: %w", cfg.Archive.Type, err)
	}
	return archive, nil
}

func newClickHouseArchive(cfg *config.Config, l *applogger.Logger) (drepo.Archive, error) {
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns, cfg.ClickHouse.ConnMaxLifetime),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return internalrepo.NewClickHouseArchive(client, cfg.ClickHouse.Table, l), nil
}

func newPostgresArchive(ctx context.Context, cfg *config.Config, l *applogger.Logger) (drepo.Archive, error) {
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	pool, err := postgres.NewPool(ctx, cfg.Postgres.URL,
		postgres.WithConns(cfg.Postgres.MaxConns, cfg.Postgres.MinConns),
		postgres.WithLifetimes(cfg.Postgres.MaxConnLifetime, cfg.Postgres.MaxConnIdleTime, cfg.Postgres.HealthCheckPeriod),
	)
	if err != nil {
		return nil, err
	}
	return internalrepo.NewPostgresArchive(pool, l), nil
}

// ProvidePublisher wraps the producer for scan events, or returns nil when Kafka is disabled.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) drepo.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.RecordsTopic)
}

// ProvideResultWriter creates the JSON result file writer.
func ProvideResultWriter() drepo.ResultWriter {
	return internalrepo.NewFileResultWriter()
}

// ProvideScanPipeline creates the per-symbol scan loop.
func ProvideScanPipeline(
	cfg *config.Config,
	analyzer domsvc.Analyzer,
	writer drepo.ResultWriter,
	m drepo.Metrics,
	l *applogger.Logger,
) *usecase.ScanPipeline {
	return usecase.NewScanPipeline(analyzer, writer,
		usecase.WithRequestDelay(cfg.Scanner.RequestDelay),
		usecase.WithSymbolTimeout(cfg.Scanner.SymbolTimeout),
		usecase.WithPipelineMetrics(m),
		usecase.WithPipelineLogger(l.With(applogger.String("component", "pipeline"))),
	)
}

// ProvideScanService creates the scan lifecycle owner with the configured filters as its base.
func ProvideScanService(
	life *server.Lifetime,
	cfg *config.Config,
	pipeline *usecase.ScanPipeline,
	analyzer domsvc.Analyzer,
	c cache.Service,
	archive drepo.Archive,
	publisher drepo.Publisher,
	m drepo.Metrics,
	l *applogger.Logger,
) (*usecase.ScanService, error) {
	criteria, err := cfg.Scanner.Filters.Criteria()
	if err != nil {
		return nil, err
	}
	opts := []usecase.ServiceOption{
		usecase.WithAppContext(life.Context()),
		usecase.WithCache(c),
		usecase.WithMetrics(m),
		usecase.WithLogger(l.With(applogger.String("component", "scan"))),
		usecase.WithPollInterval(cfg.Scanner.PollInterval),
		usecase.WithProbeTTL(cfg.Scanner.ProbeCacheTTL),
	}
	if archive != nil {
		opts = append(opts, usecase.WithArchive(archive))
	}
	if publisher != nil {
		opts = append(opts, usecase.WithPublisher(publisher))
	}
	return usecase.NewScanService(pipeline, analyzer, cfg.Scanner.ScanConfig(criteria), opts...), nil
}

// ProvideScanHandler creates the SSE, results, probe and history routes.
func ProvideScanHandler(
	cfg *config.Config,
	l *applogger.Logger,
	svc *usecase.ScanService,
	limiter *ratelimit.Limiter,
) *api.ScanHandler {
	rate := api.ProbeRate{
		Capacity:     cfg.Scanner.ProbeRate.Capacity,
		RefillPerSec: cfg.Scanner.ProbeRate.RefillPerSec,
	}
	return api.NewScanHandler(l, svc, limiter, rate)
}

// ProvideScanWSHandler creates the WebSocket progress route.
func ProvideScanWSHandler(l *applogger.Logger, svc *usecase.ScanService) *api.ScanWSHandler {
	return api.NewScanWSHandler(l, svc)
}

// ProvideHTTPServer creates the Echo server with every route registered.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	sh *api.ScanHandler,
	wh *api.ScanWSHandler,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(xhttp.Handlers{sh, wh},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(metricsPath, cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server and registers the resources it closes on shutdown.
func ProvideApp(
	cfg *config.Config,
	life *server.Lifetime,
	srv *xhttp.Server,
	svc *usecase.ScanService,
	limiter *ratelimit.Limiter,
	l *applogger.Logger,
	c cache.Service,
	archive drepo.Archive,
	publisher drepo.Publisher,
) *server.App {
	app := server.New(cfg, life, srv, svc, limiter, l)
	// publisher owns the Kafka producer
	if publisher != nil {
		app.AddCloser("kafka", publisher)
	}
	if archive != nil {
		app.AddCloser(cfg.Archive.Type, archive)
	}
	if c != nil {
		app.AddCloser("cache", c)
	}
	return app
}
