// Package providers contains dependency injection providers for the card
// identity server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/cardid/cardid-server/internal/config"
	"github.com/cardid/cardid-server/internal/logger"
)

// Args holds the command line arguments the configuration is loaded from.
type Args []string

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	args := do.MustInvoke[Args](i)
	return config.Load(args)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting card identity server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"database", cfg.Catalog.DatabasePath,
		"remote", cfg.Remote.Enabled,
	)

	return log, nil
}
