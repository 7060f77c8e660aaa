package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "TwQuant/internal/domain/repository"
	"TwQuant/internal/handler/api"
	internalrepo "TwQuant/internal/repository"
	"TwQuant/internal/service/export"
	"TwQuant/internal/service/twse"
	"TwQuant/internal/usecase"
	pkgcache "TwQuant/pkg/cache"
	pkgch "TwQuant/pkg/clickhouse"
	"TwQuant/pkg/config"
	xhttp "TwQuant/pkg/http"
	pkgkafka "TwQuant/pkg/kafka"
	applogger "TwQuant/pkg/logger"
	"TwQuant/pkg/metrics"
	"TwQuant/pkg/queue"
	"TwQuant/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideClickHouseClient creates a ClickHouse client. Table creation
// happens in the stores' Init during app startup.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer when the ingest backend
// is kafka. Direct mode returns nil and the app skips the consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Ingest.Backend != usecase.BackendKafka {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideBarStore creates the ClickHouse bar store.
func ProvideBarStore(ch *pkgch.Client, l *applogger.Logger) domrepo.BarStore {
	store := internalrepo.NewCHBarStore(ch)
	store.SetLogger(l)
	return store
}

// ProvideMarketStore creates the ClickHouse market store.
func ProvideMarketStore(ch *pkgch.Client, l *applogger.Logger) domrepo.MarketStore {
	store := internalrepo.NewCHMarketStore(ch)
	store.SetLogger(l)
	return store
}

// ProvidePublisher creates the Kafka snapshot publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideHistorySource creates the exchange client.
func ProvideHistorySource(cfg *config.Config, l *applogger.Logger) domrepo.HistorySource {
	client := twse.New(twse.Config{
		BaseURL:    cfg.TWSE.BaseURL,
		TaifexURL:  cfg.TWSE.TaifexURL,
		FxURL:      cfg.TWSE.FxURL,
		Timeout:    cfg.TWSE.Timeout,
		RetryMax:   cfg.TWSE.RetryMax,
		RetryDelay: cfg.TWSE.RetryDelay,
	})
	client.SetLogger(l)
	return client
}

// ProvideExporter creates the Parquet exporter, or nil when no export
// directory is configured.
func ProvideExporter(cfg *config.Config) *export.Exporter {
	if cfg.Export.Dir == "" {
		return nil
	}
	return export.New(cfg.Export.Dir)
}

// ProvideCache creates the response cache: layered Redis+memory when
// Redis is enabled, in-process memory otherwise.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	host, port, err := splitRedisAddr(cfg.Redis.Addr)
	if err != nil {
		return nil, err
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("twquant"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

func splitRedisAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("redis addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("redis addr %q: %w", addr, err)
	}
	return host, port, nil
}

// SweepQueue runs sweep jobs on Redis when available and in-process
// otherwise, behind one QueueService face.
type SweepQueue struct {
	redis *queue.RedisQueue
	local *localQueue
}

// ProvideSweepQueue creates the sweep job queue.
func ProvideSweepQueue(cfg *config.Config, l *applogger.Logger) *SweepQueue {
	if !cfg.Redis.Enabled {
		return &SweepQueue{local: newLocalQueue(l)}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rq := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Backtest.SweepWorkers,
		RetryLimit: 1,
		RetryDelay: 10 * time.Second,
	}, client, queue.ModeProducerConsumer, queue.WithKeyPrefix("twquant"))
	return &SweepQueue{redis: rq}
}

func (s *SweepQueue) Service() queue.QueueService {
	if s.redis != nil {
		return s.redis
	}
	return s.local
}

func (s *SweepQueue) Register(j queue.Job) {
	if s.redis != nil {
		s.redis.RegisterJob(j)
		return
	}
	s.local.register(j)
}

func (s *SweepQueue) Start() error {
	if s.redis != nil {
		if err := s.redis.Start(); err != nil {
			return err
		}
		s.redis.StartRetryProcessor()
	}
	return nil
}

func (s *SweepQueue) Stop(ctx context.Context) error {
	if s.redis != nil {
		return s.redis.Stop(ctx)
	}
	return nil
}

// ProvideSweepHub creates the progress broadcast hub.
func ProvideSweepHub() *usecase.SweepHub {
	return usecase.NewSweepHub()
}

// ProvideBacktestUseCase creates the single-run backtest usecase.
func ProvideBacktestUseCase(store domrepo.BarStore, m domrepo.Metrics) *usecase.BacktestUseCase {
	return usecase.NewBacktestUseCase(store, m)
}

// ProvideCandlesUseCase creates the candles usecase.
func ProvideCandlesUseCase(store domrepo.BarStore) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(store)
}

// ProvideMarketUseCase creates the market datasets usecase.
func ProvideMarketUseCase(store domrepo.MarketStore, cache pkgcache.Service, m domrepo.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.MarketUseCase {
	return usecase.NewMarketUseCase(store, cache, m, l, cfg.TWSE.CacheTTL)
}

// ProvideSweepUseCase creates the sweep usecase and registers its job
// runner on the queue.
func ProvideSweepUseCase(store domrepo.BarStore, sq *SweepQueue, hub *usecase.SweepHub, m domrepo.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.SweepUseCase {
	uc := usecase.NewSweepUseCase(store, sq.Service(), hub, m, l, cfg.Backtest.SweepWorkers, cfg.Backtest.SweepTimeout)
	sq.Register(usecase.NewSweepJobRunner(uc))
	return uc
}

// ProvideIngestUseCase creates the daily ingest usecase.
func ProvideIngestUseCase(
	source domrepo.HistorySource,
	publisher domrepo.Publisher,
	barStore domrepo.BarStore,
	marketStore domrepo.MarketStore,
	exporter *export.Exporter,
	cacheSvc pkgcache.Service,
	m domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.IngestUseCase {
	uc := usecase.NewIngestUseCase(source, publisher, barStore, marketStore, exporter, m, l, usecase.IngestConfig{
		Backend:  cfg.Ingest.Backend,
		Symbols:  cfg.Ingest.Symbols,
		Lookback: cfg.Ingest.Lookback,
	})
	// The lock only matters across nodes, which implies Redis.
	if cfg.Redis.Enabled {
		uc.SetLocker(cacheSvc)
	}
	return uc
}

// ProvideKafkaSnapshotHandler creates the consumer-side snapshot
// handler when the backend is kafka.
func ProvideKafkaSnapshotHandler(cfg *config.Config, barStore domrepo.BarStore, marketStore domrepo.MarketStore, m domrepo.Metrics) *usecase.KafkaSnapshotHandler {
	if cfg.Ingest.Backend != usecase.BackendKafka {
		return nil
	}
	return usecase.NewKafkaSnapshotHandler(cfg.Kafka.Topic, barStore, marketStore, m)
}

// ProvideHTTPHandler bundles the API handlers.
func ProvideHTTPHandler(
	l *applogger.Logger,
	bt *usecase.BacktestUseCase,
	sweep *usecase.SweepUseCase,
	hub *usecase.SweepHub,
	market *usecase.MarketUseCase,
	candles *usecase.CandlesUseCase,
) xhttp.Handler {
	return api.NewRoutes(
		api.NewBacktestHandler(l, bt, sweep, hub),
		api.NewMarketHandler(l, market),
		api.NewCandlesHandler(l, candles),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	ingest *usecase.IngestUseCase,
	consumer *pkgkafka.Consumer,
	snapshotHandler *usecase.KafkaSnapshotHandler,
	sq *SweepQueue,
	barStore domrepo.BarStore,
	marketStore domrepo.MarketStore,
	ch *pkgch.Client,
	publisher domrepo.Publisher,
) *server.App {
	return server.New(server.Deps{
		Config:          cfg,
		Logger:          l,
		Handler:         handler,
		Ingest:          ingest,
		Consumer:        consumer,
		SnapshotHandler: snapshotHandler,
		Queue:           sq,
		BarStore:        barStore,
		MarketStore:     marketStore,
		CH:              ch,
		Publisher:       publisher,
	})
}
