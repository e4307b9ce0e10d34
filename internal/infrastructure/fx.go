// Package infrastructure contains infrastructure layer components
package infrastructure

import (
	"go.uber.org/fx"

	"github.com/AhmadKaify/Sanasend/internal/infrastructure/cache"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/database"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/http"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/kafka"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/logger"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/whatsapp"
)

// Module provides all infrastructure components for fx dependency injection
var Module = fx.Module("infrastructure",
	logger.Module,
	metrics.Module,
	database.Module,
	cache.Module,
	kafka.Module,
	whatsapp.Module,
	http.Module,
)
