// Package providers contains dependency injection providers for the TagReturn server.
package providers

import (
	"os"
	"time"

	"github.com/samber/do/v2"

	"github.com/tagreturn/tagreturn-server/internal/config"
	"github.com/tagreturn/tagreturn-server/internal/logger"
)

// shutdownTimeout bounds each handle's graceful shutdown.
const shutdownTimeout = 30 * time.Second

// ProvideConfig provides the application configuration from the process
// arguments, environment and .env file.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting TagReturn Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"store", cfg.Store.Driver,
	)

	return log, nil
}
