package whatsapp

import (
	"go.uber.org/fx"
)

// Module provides the WhatsApp backend client for fx DI
var Module = fx.Module("whatsapp",
	fx.Provide(NewClient),
)
