package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AhmadKaify/Sanasend/config"
	"github.com/AhmadKaify/Sanasend/internal/domain/session/deps"
)

const sweepTimeout = 2 * time.Minute

// sweep is one periodic maintenance job
type sweep struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) (int, error)
}

// Sweeper periodically expires QR codes, syncs statuses with the backend and
// purges long-disconnected sessions
type Sweeper struct {
	lifecycle deps.LifecycleService
	logger    zerolog.Logger
	sweeps    []sweep

	done   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSweeper creates the session maintenance worker
func NewSweeper(
	lifecycle deps.LifecycleService,
	sessionCfg *config.SessionConfig,
	logger zerolog.Logger,
) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())

	retention := sessionCfg.RetentionPeriod
	s := &Sweeper{
		lifecycle: lifecycle,
		logger:    logger.With().Str("component", "session_sweeper").Logger(),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	s.sweeps = []sweep{
		{name: "qr_expiry", interval: sessionCfg.QRExpiryInterval, run: lifecycle.ExpireQRCodes},
		{name: "status_sync", interval: sessionCfg.StatusSyncInterval, run: lifecycle.SyncStatuses},
		{name: "retention", interval: sessionCfg.RetentionInterval, run: func(ctx context.Context) (int, error) {
			return lifecycle.PurgeDisconnected(ctx, retention)
		}},
	}

	return s
}

// Start launches one loop per sweep
func (s *Sweeper) Start() {
	for _, sw := range s.sweeps {
		if sw.interval <= 0 {
			s.logger.Warn().Str("sweep", sw.name).Msg("sweep disabled, interval not positive")
			continue
		}

		s.logger.Info().
			Str("sweep", sw.name).
			Dur("interval", sw.interval).
			Msg("starting session sweep")

		s.wg.Add(1)
		go s.loop(sw)
	}
}

// Stop cancels running sweeps and waits for the loops to exit
func (s *Sweeper) Stop() {
	s.logger.Info().Msg("stopping session sweeper")

	s.cancel()
	close(s.done)
	s.wg.Wait()

	s.logger.Info().Msg("session sweeper stopped")
}

func (s *Sweeper) loop(sw sweep) {
	defer s.wg.Done()

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.runOnce(sw)
		}
	}
}

// runOnce executes a sweep under its own timeout
func (s *Sweeper) runOnce(sw sweep) {
	ctx, cancel := context.WithTimeout(s.ctx, sweepTimeout)
	defer cancel()

	affected, err := sw.run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Warn().Err(err).Str("sweep", sw.name).Msg("sweep cancelled or timed out")
		} else {
			s.logger.Error().Err(err).Str("sweep", sw.name).Msg("sweep failed")
		}
		return
	}

	if affected > 0 {
		s.logger.Info().Str("sweep", sw.name).Int("affected", affected).Msg("sweep completed")
	} else {
		s.logger.Debug().Str("sweep", sw.name).Msg("sweep completed, nothing to do")
	}
}
