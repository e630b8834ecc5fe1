//go:build wireinject
// +build wireinject

package di

import (
	"PatternPull/pkg/config"
	"PatternPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideBarStorage,
		ProvideBarPublisher,
		ProvideSignalPublisher,
		ProvideFeedStream,

		// Core scanning state
		ProvideWindowStore,
		ProvideRegistry,
		ProvideEvaluator,
		ProvideTracker,
		ProvideQueue,
		ProvideDispatcher,

		// Use cases
		ProvideBarProcessor,
		ProvideBarCollector,
		ProvideKafkaBarsHandler,
		ProvideLiveScanner,
		ProvideHistory,

		// HTTP surface and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
