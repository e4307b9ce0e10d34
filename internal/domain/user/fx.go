package user

import (
	"go.uber.org/fx"

	"github.com/AhmadKaify/Sanasend/internal/domain/user/repository/postgres"
)

// Module provides user account lookup for fx DI
var Module = fx.Module("user",
	fx.Provide(postgres.NewRepository),
)
