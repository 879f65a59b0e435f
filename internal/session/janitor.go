package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Janitor periodically removes expired sessions. Validate never depends on it.
type Janitor struct {
	sweeper  Sweeper
	interval time.Duration
}

func NewJanitor(sweeper Sweeper, interval time.Duration) *Janitor {
	return &Janitor{sweeper: sweeper, interval: interval}
}

// Run blocks until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		log.Warn().Msg("session janitor disabled: non-positive interval")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", j.interval).Msg("Session janitor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session janitor stopped")
			return
		case <-ticker.C:
			n, err := j.sweeper.Sweep(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Session sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("Expired sessions swept")
			}
		}
	}
}
