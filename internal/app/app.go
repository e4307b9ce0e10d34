// Package app contains application bootstrap
package app

import (
	"go.uber.org/fx"

	"github.com/AhmadKaify/Sanasend/config"
	healthhttp "github.com/AhmadKaify/Sanasend/internal/delivery/http"
	"github.com/AhmadKaify/Sanasend/internal/domain"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure"
)

// CreateApp creates fx application with all modules
func CreateApp() fx.Option {
	return fx.Options(
		// Configuration
		fx.Provide(config.Out),

		// Infrastructure (logger, metrics, postgres, redis, kafka, backend client, http server)
		infrastructure.Module,

		// Domain (keys, rate limits, session pool, messages)
		domain.Module,

		healthhttp.Module,
	)
}
