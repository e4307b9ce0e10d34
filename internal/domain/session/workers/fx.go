package workers

import (
	"context"

	"go.uber.org/fx"
)

// Module provides session workers for fx DI
var Module = fx.Module("session-workers",
	fx.Provide(NewSweeper),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle registers the sweeper with fx.Lifecycle
func registerLifecycle(lc fx.Lifecycle, s *Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	})
}
