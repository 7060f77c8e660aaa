//go:build wireinject
// +build wireinject

package di

import (
	"TwQuant/pkg/config"
	"TwQuant/pkg/server"

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
		ProvideCache,
		ProvideSweepQueue,

		// Repositories
		ProvideBarStore,
		ProvideMarketStore,
		ProvidePublisher,
		ProvideHistorySource,
		ProvideExporter,

		// Use cases
		ProvideBacktestUseCase,
		ProvideCandlesUseCase,
		ProvideMarketUseCase,
		ProvideSweepHub,
		ProvideSweepUseCase,
		ProvideIngestUseCase,
		ProvideKafkaSnapshotHandler,

		// HTTP surface and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
