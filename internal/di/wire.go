//go:build wireinject
// +build wireinject

package di

import (
	"BinPulse/pkg/config"
	"BinPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaConsumer,
		ProvideMQTTClient,

		// Repositories
		ProvideBinRepository,
		ProvideRequestRepository,
		ProvideHistoryStore,
		ProvideEventPublisher,

		// Simulation
		ProvideRandomSource,
		ProvideEngine,
		ProvideEventProcessor,
		ProvideTelemetryPipeline,

		// Use cases and jobs
		ProvideRequestsUseCase,
		ProvideCollectionJob,
		ProvideRedisQueue,
		ProvideJobQueue,
		ProvideTickOrchestrator,
		ProvideScheduler,
		ProvideEventsHandler,

		// HTTP
		ProvideLifetime,
		ProvideLimiter,
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
