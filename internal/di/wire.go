//go:build wireinject
// +build wireinject

package di

import (
	"FinWatch/pkg/config"
	"FinWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideResultStore,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Adapters
		ProvidePriceSource,
		ProvideHub,
		ProvideResultPublisher,
		ProvideExporters,
		ProvideLimiter,

		// Use cases
		ProvideRegistry,

		// Transport
		ProvideMonitorHandler,
		ProvideHTTPServer,
		ProvideControlConsumer,

		ProvideApp,
	)
	return nil, nil, nil
}
