package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BinPulse/internal/domain/models"
	"BinPulse/internal/domain/repository"
	"BinPulse/internal/handler/api"
	mid "BinPulse/internal/middleware"
	internalrepo "BinPulse/internal/repository"
	"BinPulse/internal/service/ratelimit"
	"BinPulse/internal/services/simulator"
	"BinPulse/internal/usecase"
	"BinPulse/pkg/cache"
	pkgch "BinPulse/pkg/clickhouse"
	"BinPulse/pkg/config"
	xhttp "BinPulse/pkg/http"
	pkgkafka "BinPulse/pkg/kafka"
	applogger "BinPulse/pkg/logger"
	"BinPulse/pkg/metrics"
	pkgmqtt "BinPulse/pkg/mqtt"
	"BinPulse/pkg/queue"
	"BinPulse/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideLogger creates the application logger. With kafka.logs_topic set,
// repeated errors are aggregated and shipped to Kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
			Levels:         []string{"error", "warn"},
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisCache connects to Redis when any component needs it.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.RedisRequired() {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 5*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCache shares Redis between replicas; a single process keeps it in memory.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	if rc != nil {
		return rc
	}
	return cache.NewMemoryCache(cache.WithMemoryMaxSize(1024), cache.WithMemoryCleanup(time.Minute))
}

// ProvideBinRepository selects the bin store by backend.type.
func ProvideBinRepository(cfg *config.Config, rc *cache.RedisCache) repository.BinRepository {
	if cfg.Backend.Type == "redis" && rc != nil {
		return internalrepo.NewRedisBinRepository(rc.Client(), cfg.Redis.Prefix)
	}
	return internalrepo.NewMemoryBinRepository()
}

// ProvideRequestRepository selects the request store by backend.type.
func ProvideRequestRepository(cfg *config.Config, rc *cache.RedisCache) repository.RequestRepository {
	if cfg.Backend.Type == "redis" && rc != nil {
		return internalrepo.NewRedisRequestRepository(rc.Client(), cfg.Redis.Prefix)
	}
	return internalrepo.NewMemoryRequestRepository()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil without a host.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
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

// ProvideHistoryStore creates the readings table. A nil client disables history.
func ProvideHistoryStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) (repository.HistoryStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHHistoryStore(ch, cfg.ClickHouse.Database+".bin_readings")
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := ch.InitSchema(ctx, []string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse database: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil without brokers.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
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

// ProvideEventPublisher wraps the producer for simulation events.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

// ProvideEventProcessor routes tick events to the configured history sink.
func ProvideEventProcessor(pub repository.EventPublisher, store repository.HistoryStore, m repository.Metrics, cfg *config.Config) *usecase.EventProcessor {
	return usecase.NewEventProcessor(pub, store, m, cfg.History.Sink)
}

// ProvideKafkaConsumer creates the history consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
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
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceIDHook())
	return consumer, nil
}

// ProvideEventsHandler consumes the events topic into ClickHouse.
func ProvideEventsHandler(consumer *pkgkafka.Consumer, store repository.HistoryStore, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if consumer == nil || store == nil {
		return nil
	}
	return usecase.NewSimulationEventsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideMQTTClient connects to the telemetry broker when enabled.
func ProvideMQTTClient(cfg *config.Config, l *applogger.Logger) (*pkgmqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		return nil, nil
	}
	client, err := pkgmqtt.NewClient(
		pkgmqtt.WithBroker(cfg.MQTT.Broker),
		pkgmqtt.WithClientID(cfg.MQTT.ClientID),
		pkgmqtt.WithCredentials(cfg.MQTT.Username, cfg.MQTT.Password),
		pkgmqtt.WithPublishWait(cfg.MQTT.PublishWait),
		pkgmqtt.WithLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	return client, nil
}

// ProvideTelemetryPipeline throttles and buffers readings in front of MQTT.
func ProvideTelemetryPipeline(client *pkgmqtt.Client, m repository.Metrics, cfg *config.Config) *mid.TelemetryPipeline {
	if client == nil {
		return nil
	}
	pub := internalrepo.NewMQTTTelemetry(client, cfg.MQTT.TopicPattern, byte(cfg.MQTT.QoS), cfg.MQTT.Retained)
	return mid.NewTelemetryPipeline(pub, m,
		mid.WithMaxRate(cfg.MQTT.MaxRate),
		mid.WithBufferSize(cfg.MQTT.BufferSize),
	)
}

// ProvideRandomSource is shared by the engine and the demo seed.
func ProvideRandomSource(cfg *config.Config) simulator.Source {
	return simulator.NewSeededSource(cfg.Simulation.Seed)
}

// ProvideEngine builds the fill-level engine from simulation settings.
func ProvideEngine(cfg *config.Config, src simulator.Source) (*simulator.Engine, error) {
	s := cfg.Simulation

	overrides := make(map[models.Category]simulator.Pattern, len(s.Patterns))
	for name, p := range s.Patterns {
		cat, err := models.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("simulation.patterns: %w", err)
		}
		pat, err := simulator.NewPattern(p.BaseRate, p.PeakHours, p.PeakMultiplier, p.WeekendMultiplier)
		if err != nil {
			return nil, fmt.Errorf("simulation.patterns.%s: %w", name, err)
		}
		overrides[cat] = pat
	}
	table, err := simulator.DefaultPatterns().WithOverrides(overrides)
	if err != nil {
		return nil, fmt.Errorf("simulation.patterns: %w", err)
	}

	rules := make([]simulator.EmptyRule, 0, len(s.AutoEmpty))
	for _, r := range s.AutoEmpty {
		rules = append(rules, simulator.EmptyRule{MinLevel: r.MinLevel, MinMinutes: r.MinMinutes, Probability: r.Probability})
	}
	policy, err := simulator.NewEmptyPolicy(rules)
	if err != nil {
		return nil, fmt.Errorf("simulation.auto_empty: %w", err)
	}

	var loc *time.Location
	if s.Timezone != "" && s.Timezone != "Local" {
		loc, err = time.LoadLocation(s.Timezone)
		if err != nil {
			return nil, fmt.Errorf("simulation.timezone: %w", err)
		}
	}

	return simulator.NewEngine(
		simulator.NewCalculator(table, src),
		simulator.NewDecider(policy, src),
		simulator.SystemClock{Location: loc},
	), nil
}

// ProvideRequestsUseCase creates the service request use case.
func ProvideRequestsUseCase(requests repository.RequestRepository, bins repository.BinRepository, l *applogger.Logger) *usecase.RequestsUseCase {
	return usecase.NewRequestsUseCase(requests, bins, l)
}

// ProvideCollectionJob files pickup requests for bins that reached HIGH.
func ProvideCollectionJob(requests *usecase.RequestsUseCase, l *applogger.Logger) *usecase.CollectionDueJob {
	return usecase.NewCollectionDueJob(requests, l)
}

// ProvideRedisQueue creates the Redis job queue when enabled.
func ProvideRedisQueue(cfg *config.Config, rc *cache.RedisCache, job *usecase.CollectionDueJob, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	rq := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	rq.RegisterJob(job)
	return rq
}

// ProvideJobQueue prefers the Redis queue and falls back to running jobs inline.
func ProvideJobQueue(rq *queue.RedisQueue, job *usecase.CollectionDueJob, l *applogger.Logger) repository.JobQueue {
	if rq != nil {
		return rq
	}
	iq := queue.NewInlineQueue(l)
	iq.RegisterJob(job)
	return iq
}

// ProvideTickOrchestrator wires the engine to storage, sinks and jobs.
func ProvideTickOrchestrator(
	cfg *config.Config,
	bins repository.BinRepository,
	engine *simulator.Engine,
	m repository.Metrics,
	l *applogger.Logger,
	c cache.Service,
	events *usecase.EventProcessor,
	pipe *mid.TelemetryPipeline,
	jobs repository.JobQueue,
) *usecase.TickOrchestrator {
	opts := []usecase.TickOption{
		usecase.WithSnapshotCache(c),
		usecase.WithJobQueue(jobs),
	}
	if events.Sink() != usecase.SinkNone {
		opts = append(opts, usecase.WithEventSink(events))
	}
	if pipe != nil {
		opts = append(opts, usecase.WithReadingSink(pipe))
	}
	return usecase.NewTickOrchestrator(bins, engine, m, l, usecase.TickConfig{
		IntervalSeconds: cfg.Simulation.IntervalSeconds,
		Epsilon:         cfg.Simulation.Epsilon,
		Workers:         cfg.Simulation.Workers,
		SnapshotTTL:     cfg.Cache.SnapshotTTL,
		LockTTL:         cfg.Simulation.TickInterval * 4,
	}, opts...)
}

// ProvideScheduler creates the periodic tick driver.
func ProvideScheduler(cfg *config.Config, orch *usecase.TickOrchestrator, m repository.Metrics, l *applogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(orch, cfg.Simulation.TickInterval, m, l)
}

// ProvideLimiter limits manual ticks per client.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.TickBurst, cfg.RateLimit.TickRefill)
}

// ProvideLifetime is cancelled by App on shutdown.
func ProvideLifetime() *server.Lifetime {
	return server.NewLifetime()
}

// ProvideHandlers builds every HTTP handler.
func ProvideHandlers(
	lt *server.Lifetime,
	l *applogger.Logger,
	bins repository.BinRepository,
	requests repository.RequestRepository,
	history repository.HistoryStore,
	m repository.Metrics,
	reqUC *usecase.RequestsUseCase,
	orch *usecase.TickOrchestrator,
	sched *usecase.Scheduler,
	limiter *ratelimit.Limiter,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewBinsHandler(l, usecase.NewBinsUseCase(bins, requests, m, l)),
		api.NewRequestsHandler(l, reqUC),
		api.NewReportsHandler(l, usecase.NewReportsUseCase(bins, requests, history, l)),
		api.NewSimulationHandler(lt.Context(), l, orch, sched, limiter),
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	handlers []xhttp.Handler,
	l *applogger.Logger,
	rc *cache.RedisCache,
	ch *pkgch.Client,
	mqttClient *pkgmqtt.Client,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithTrustedProxies(cfg.Server.TrustedProxies),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l, cfg.Server.SlowRequest),
	}
	if rc != nil {
		opts = append(opts, xhttp.WithReadiness("redis", func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		}))
	}
	if ch != nil {
		opts = append(opts, xhttp.WithReadiness("clickhouse", ch.Health))
	}
	if mqttClient != nil {
		opts = append(opts, xhttp.WithReadiness("mqtt", func(context.Context) error {
			if !mqttClient.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}))
	}
	return xhttp.NewServer(handlers, opts...)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(
	cfg *config.Config,
	lt *server.Lifetime,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	sched *usecase.Scheduler,
	limiter *ratelimit.Limiter,
	bins repository.BinRepository,
	src simulator.Source,
	c cache.Service,
	events *usecase.EventProcessor,
	pipe *mid.TelemetryPipeline,
	rq *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
	mqttClient *pkgmqtt.Client,
	ch *pkgch.Client,
) *server.App {
	return server.New(cfg, server.Deps{
		Lifetime:   lt,
		Logger:     l,
		HTTP:       httpServer,
		Scheduler:  sched,
		Limiter:    limiter,
		Seed:       seedFunc(cfg, bins, src, l),
		Cache:      c,
		Events:     events,
		Telemetry:  pipe,
		Queue:      rq,
		Consumer:   consumer,
		Handler:    handler,
		MQTT:       mqttClient,
		ClickHouse: ch,
	})
}

func seedFunc(cfg *config.Config, bins repository.BinRepository, src simulator.Source, l *applogger.Logger) func(context.Context) error {
	if !cfg.Backend.SeedDemo {
		return nil
	}
	return func(ctx context.Context) error {
		_, err := usecase.SeedDemoBins(ctx, bins, src, l)
		return err
	}
}
