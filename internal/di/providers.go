package di

import (
	"context"
	"fmt"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	"FinWatch/internal/handler/api"
	"FinWatch/internal/handler/ws"
	internalrepo "FinWatch/internal/repository"
	"FinWatch/internal/service/cache"
	"FinWatch/internal/service/finnhub"
	apimetrics "FinWatch/internal/service/metrics"
	"FinWatch/internal/service/ratelimit"
	"FinWatch/internal/service/simsource"
	"FinWatch/internal/service/yahoo"
	"FinWatch/internal/services/analysis"
	"FinWatch/internal/usecase"
	pkgch "FinWatch/pkg/clickhouse"
	"FinWatch/pkg/config"
	xhttp "FinWatch/pkg/http"
	pkgkafka "FinWatch/pkg/kafka"
	"FinWatch/pkg/logger"
	"FinWatch/pkg/metrics"
	"FinWatch/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger builds the process logger from the logging section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics registers the pipeline and API collectors on the default registry.
func ProvideMetrics() drepo.Metrics {
	apimetrics.Register()
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvidePriceSource selects the data source by source.type.
func ProvidePriceSource(cfg *config.Config, l *logger.Logger) (drepo.PriceSource, error) {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Source.Timeout))
	log := l.With(logger.String("source", cfg.Source.Type))

	switch cfg.Source.Type {
	case "yahoo":
		return yahoo.New(
			yahoo.WithBaseURL(cfg.Source.BaseURL),
			yahoo.WithHTTPClient(xhttp.NewClient(
				xhttp.WithTimeout(cfg.Source.Timeout),
				xhttp.WithUserAgent("Mozilla/5.0 (compatible; finwatch/1.0)"),
			)),
			yahoo.WithLogger(log),
		), nil
	case "finnhub":
		base := cfg.Source.BaseURL
		if base == yahoo.DefaultBaseURL {
			base = finnhub.DefaultBaseURL
		}
		return finnhub.New(cfg.Source.APIKey,
			finnhub.WithBaseURL(base),
			finnhub.WithHTTPClient(client),
			finnhub.WithLogger(log),
		), nil
	case "sim":
		return simsource.New(
			simsource.WithStartPrice(cfg.Source.Sim.StartPrice),
			simsource.WithVolatility(cfg.Source.Sim.Volatility),
			simsource.WithSeed(cfg.Source.Sim.Seed),
		), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

// ProvideHub creates the websocket hub serving as view factory and notifier.
func ProvideHub(cfg *config.Config, l *logger.Logger) *ws.Hub {
	return ws.NewHub(
		ws.WithWriteTimeout(cfg.WebSocket.WriteTimeout),
		ws.WithPingPeriod(cfg.WebSocket.PingPeriod),
		ws.WithCloseOnLastDetach(cfg.WebSocket.CloseOnLastDetach),
		ws.WithRecentNotices(cfg.WebSocket.RecentNotices),
		ws.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		ws.WithLogger(l.With(logger.String("component", "ws"))),
	)
}

// ProvideResultStore keeps the latest result in Redis when enabled, in
// memory otherwise.
func ProvideResultStore(cfg *config.Config, l *logger.Logger) (drepo.ResultStore, func(), error) {
	if !cfg.Redis.Enabled {
		return cache.NewResultStore(cache.NewTTLCache(), cfg.Redis.TTL), func() {}, nil
	}

	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, nil, err
	}
	l.Info("redis result store ready", logger.String("addr", cfg.Redis.Addr))
	cleanup := func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close failed", logger.Error(err))
		}
	}
	return cache.NewResultStore(rc, cfg.Redis.TTL), cleanup, nil
}

// ProvideKafkaProducer returns nil when result publishing is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	p, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerLogger(l.With(logger.String("component", "kafka.producer"))),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := p.Close(); err != nil {
			l.Warn("kafka producer close failed", logger.Error(err))
		}
	}
	return p, cleanup, nil
}

// ProvideResultPublisher returns a nil publisher when there is no producer.
func ProvideResultPublisher(p *pkgkafka.Producer, cfg *config.Config) drepo.ResultPublisher {
	if p == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(p, cfg.Kafka.ResultsTopic)
}

// ProvideRegistry builds the session registry with the configured ticks and features.
func ProvideRegistry(
	cfg *config.Config,
	source drepo.PriceSource,
	hub *ws.Hub,
	store drepo.ResultStore,
	pub drepo.ResultPublisher,
	m drepo.Metrics,
	l *logger.Logger,
) *usecase.Registry {
	return usecase.NewRegistry(source, hub, hub,
		usecase.WithAnalysisFeatures(analysis.Features{
			MAWindow:     cfg.Analysis.MAWindow,
			MedianWindow: cfg.Analysis.MedianWindow,
			Extrema:      cfg.Analysis.Extrema,
		}),
		usecase.WithLatestStore(store),
		usecase.WithPublisher(pub),
		usecase.WithRegistryMetrics(m),
		usecase.WithRegistryLogger(l),
		usecase.WithSessionOptions(
			usecase.WithPollTick(cfg.Monitor.PollTick),
			usecase.WithFetchTimeout(cfg.Monitor.FetchTimeout),
		),
		usecase.WithConsumerOptions(
			usecase.WithConsumerTick(cfg.Monitor.ConsumerTick),
		),
	)
}

// ProvideClickHouseClient returns nil when the ClickHouse export is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *logger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.ResultsSchema(cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse export ready",
		logger.String("database", client.Database()),
		logger.String("table", cfg.ClickHouse.Table),
	)
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close failed", logger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideExporters always includes xlsx and adds ClickHouse when connected.
func ProvideExporters(cfg *config.Config, ch *pkgch.Client, l *logger.Logger) []drepo.Exporter {
	exps := []drepo.Exporter{internalrepo.NewXLSXExporter(cfg.Export.Dir)}
	if ch != nil {
		exps = append(exps, internalrepo.NewClickHouseExporter(ch.DB(), cfg.ClickHouse.Table, l))
	}
	return exps
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Monitor.StartBurst, cfg.Monitor.StartRefill)
}

func ProvideMonitorHandler(
	cfg *config.Config,
	reg *usecase.Registry,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
	exps []drepo.Exporter,
	l *logger.Logger,
) *api.MonitorHandler {
	return api.NewMonitorHandler(l, reg, hub,
		api.WithLimiter(limiter),
		api.WithExporters(exps...),
		api.WithDefaults(cfg.Monitor.DefaultSymbol, models.PollConfig{
			Period:   cfg.Monitor.DefaultPeriod,
			Interval: cfg.Monitor.DefaultInterval,
		}),
	)
}

func ProvideHTTPServer(cfg *config.Config, mh *api.MonitorHandler, hub *ws.Hub, l *logger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{mh, hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.AllowedOrigins),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l.With(logger.String("component", "http"))),
	)
}

// ProvideControlConsumer returns nil when the control topic is disabled.
func ProvideControlConsumer(cfg *config.Config, reg *usecase.Registry, l *logger.Logger) (*pkgkafka.Consumer, error) {
	kc := cfg.Kafka.Control
	if !kc.Enabled {
		return nil, nil
	}
	log := l.With(logger.String("component", "kafka.control"))
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerFetch(kc.MinBytes, kc.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewKafkaControlHandler(kc.Topic, reg, models.PollConfig{
		Period:   cfg.Monitor.DefaultPeriod,
		Interval: cfg.Monitor.DefaultInterval,
	}, log))
	consumer.WithConsumerHook(pkgkafka.LoggingHook(log))
	return consumer, nil
}

func ProvideApp(
	cfg *config.Config,
	reg *usecase.Registry,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	l *logger.Logger,
) *server.App {
	return server.New(cfg, reg, srv, consumer, l)
}
