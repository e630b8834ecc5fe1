package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"PatternPull/internal/domain/repository"
	"PatternPull/internal/handler/api"
	mid "PatternPull/internal/middleware"
	"PatternPull/internal/pattern"
	internalrepo "PatternPull/internal/repository"
	"PatternPull/internal/service/alerts"
	"PatternPull/internal/service/feed"
	"PatternPull/internal/store"
	"PatternPull/internal/usecase"
	"PatternPull/pkg/cache"
	pkgch "PatternPull/pkg/clickhouse"
	"PatternPull/pkg/config"
	xhttp "PatternPull/pkg/http"
	pkgkafka "PatternPull/pkg/kafka"
	applogger "PatternPull/pkg/logger"
	"PatternPull/pkg/metrics"
	"PatternPull/pkg/queue"
	"PatternPull/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// bar tables.
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".bars_1s (ts DateTime, ticker String, open Float64, high Float64, low Float64, close Float64, volume Float64, rth UInt8) ENGINE=MergeTree ORDER BY (ticker, ts)",
		"CREATE TABLE IF NOT EXISTS " + db + ".bars_1m (ts DateTime, ticker String, open Float64, high Float64, low Float64, close Float64, volume Float64, rth UInt8) ENGINE=MergeTree ORDER BY (ticker, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
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

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
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
	return consumer, nil
}

// ProvideBarStorage creates ClickHouse bar storage.
func ProvideBarStorage(chClient *pkgch.Client, cfg *config.Config) repository.BarStorage {
	return internalrepo.NewClickHouseBarStorage(chClient.DB(), cfg.ClickHouse.Database+".bars_1m")
}

// ProvideBarPublisher creates the Kafka bar republisher.
func ProvideBarPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.BarPublisher {
	return internalrepo.NewKafkaBarPublisher(producer, cfg.Kafka.BarTopic)
}

// ProvideSignalPublisher creates the Kafka signal publisher.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalTopic)
}

// ProvideFeedStream creates the WebSocket bar stream.
func ProvideFeedStream(cfg *config.Config) repository.BarStream {
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Tickers,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideWindowStore creates the bounded per-ticker bar store.
func ProvideWindowStore(cfg *config.Config, m repository.Metrics) *store.WindowStore {
	return store.New(
		store.WithCapacity(cfg.Scanner.Capacity),
		store.WithMetrics(m),
	)
}

// ProvideRegistry creates the pattern registry with the built-in patterns.
func ProvideRegistry(l *applogger.Logger) *pattern.Registry {
	r := pattern.NewRegistry(l)
	r.Register(pattern.NewGapUp())
	r.Register(pattern.NewVWAPReclaim())
	r.Register(pattern.NewVolumeSurge())
	return r
}

// ProvideEvaluator creates the pattern evaluator.
func ProvideEvaluator(registry *pattern.Registry, l *applogger.Logger) *usecase.PatternEvaluator {
	return usecase.NewPatternEvaluator(registry, l)
}

// ProvideTracker creates the signal dedup tracker.
func ProvideTracker(cfg *config.Config) *usecase.SignalTracker {
	return usecase.NewSignalTracker(usecase.WithCooldown(cfg.Scanner.Cooldown))
}

// ProvideQueue creates the Redis job queue used by the queue alert sink.
// Aggregated error logs ride the same queue so repeated failures reach
// operators as one entry instead of a flood.
func ProvideQueue(cfg *config.Config, l *applogger.Logger) queue.QueueService {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	q := queue.NewRedisPublisher(l, client)
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          "logs.aggregated",
		Publisher:      q,
	})
	return q
}

// ProvideDispatcher creates the alert dispatcher with configured sinks.
func ProvideDispatcher(
	cfg *config.Config,
	l *applogger.Logger,
	sigPub repository.SignalPublisher,
	q queue.QueueService,
	m repository.Metrics,
) *usecase.AlertDispatcher {
	opts := []usecase.DispatcherOption{
		usecase.WithFilter(usecase.AlertFilter{
			MinConfidence: cfg.Scanner.MinConfidence,
			Patterns:      cfg.Scanner.Patterns,
			Tickers:       cfg.Scanner.Tickers,
		}),
		usecase.WithDispatchMetrics(m),
	}
	if cfg.Scanner.DispatchRate > 0 {
		opts = append(opts, usecase.WithDispatchRate(cfg.Scanner.DispatchRate))
	}
	d := usecase.NewAlertDispatcher(l, opts...)

	if cfg.Alerts.Console {
		d.AddSink(alerts.NewConsoleSink())
	}
	if cfg.Alerts.Kafka && sigPub != nil {
		d.AddSink(alerts.NewKafkaSink(sigPub))
	}
	if cfg.Alerts.Queue && q != nil {
		d.AddSink(alerts.NewQueueSink(q))
	}
	return d
}

// ProvideBarProcessor creates the bar processor use case.
func ProvideBarProcessor(
	windows *store.WindowStore,
	pub repository.BarPublisher,
	storage repository.BarStorage,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.BarProcessor {
	return usecase.NewBarProcessor(windows, pub, storage, m, cfg.Backend.Type)
}

// ProvideBarCollector creates the bar collector use case.
func ProvideBarCollector(
	stream repository.BarStream,
	processor *usecase.BarProcessor,
	m repository.Metrics,
) *usecase.BarCollector {
	pipe := mid.NewIngestPipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewBarCollector(stream, processor, m, pipe)
}

// ProvideKafkaBarsHandler registers the handler for the bars topic.
func ProvideKafkaBarsHandler(proc *usecase.BarProcessor, m repository.Metrics, cfg *config.Config) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.BarTopic, proc, m)
}

// ProvideLiveScanner creates the periodic scan loop.
func ProvideLiveScanner(
	windows *store.WindowStore,
	evaluator *usecase.PatternEvaluator,
	tracker *usecase.SignalTracker,
	dispatcher *usecase.AlertDispatcher,
	l *applogger.Logger,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.LiveScanner {
	return usecase.NewLiveScanner(windows, evaluator, tracker, dispatcher, l,
		usecase.WithScanInterval(cfg.Scanner.Interval),
		usecase.WithInitialDelay(cfg.Scanner.InitialDelay),
		usecase.WithScannerMetrics(m),
	)
}

// ProvideHistory creates the cached bar history use case.
func ProvideHistory(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) *usecase.HistoryUseCase {
	src := internalrepo.NewCHBarSource(chClient, cfg.ClickHouse.Database)
	src.SetLogger(l)

	var svc cache.Service
	if cfg.Redis.Enabled {
		host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
		if err != nil {
			host, portStr = cfg.Redis.Addr, "6379"
		}
		port, _ := strconv.Atoi(portStr)
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(host),
			cache.WithRedisPort(port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix("patternpull"),
		)
		if err == nil {
			svc = cache.NewLayeredCache(rc)
		} else {
			l.Warn("redis cache unavailable, using memory cache", applogger.Error(err))
		}
	}
	if svc == nil {
		svc = cache.NewMemoryCache()
	}
	return usecase.NewHistoryUseCase(src, usecase.WithHistoryCache(svc, cfg.Replay.CacheTTL))
}

// ProvideHTTPHandler creates the scanner API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	scanner *usecase.LiveScanner,
	tracker *usecase.SignalTracker,
	history *usecase.HistoryUseCase,
) xhttp.Handler {
	return api.NewScannerHandler(l, scanner, tracker, history)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.BarCollector,
	scanner *usecase.LiveScanner,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaBarsHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, collector, scanner, consumer, kh, chClient)
	app.SetHTTPHandler(handler)
	if collector != nil {
		app.BarProc = collector.Processor()
	}
	return app
}
