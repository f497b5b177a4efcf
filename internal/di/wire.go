//go:build wireinject
// +build wireinject

package di

import (
	"LGDPulse/pkg/config"
	"LGDPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisClient,
		ProvideCache,

		// Inputs and outputs
		ProvideMacroClient,
		ProvideVerdictLog,
		ProvideSources,
		ProvideSinks,

		// Analytics and orchestration
		ProvideModel,
		ProvideEngines,
		ProvideValidationRun,

		// Surface
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
