//go:build wireinject
// +build wireinject

package di

import (
	"SetupScan/pkg/config"
	"SetupScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Process lifetime and ambient services
		ProvideLifetime,
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideLimiter,

		// Analysis collaborator
		ProvideMarketData,
		ProvideAnalyzer,

		// Repositories
		ProvideCache,
		ProvideArchive,
		ProvidePublisher,
		ProvideResultWriter,

		// Use cases
		ProvideScanPipeline,
		ProvideScanService,

		// Transport
		ProvideScanHandler,
		ProvideScanWSHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
