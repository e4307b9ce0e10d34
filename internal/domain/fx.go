// Package domain contains all domain modules
package domain

import (
	"go.uber.org/fx"

	"github.com/AhmadKaify/Sanasend/internal/domain/apikey"
	"github.com/AhmadKaify/Sanasend/internal/domain/message"
	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit"
	"github.com/AhmadKaify/Sanasend/internal/domain/session"
	"github.com/AhmadKaify/Sanasend/internal/domain/user"
)

// Module aggregates all domain modules for fx dependency injection
var Module = fx.Module("domain",
	user.Module,
	apikey.Module,
	ratelimit.Module,
	session.Module,
	message.Module,
)
