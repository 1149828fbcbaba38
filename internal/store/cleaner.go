package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"brokerd/internal/metrics"
)

// Cleaner periodically evicts expired head entries from a Log. It is
// only started when the configured TTL is finite — the "session"
// sentinel (no eviction) means no Cleaner is ever constructed.
type Cleaner struct {
	log    *Log
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCleaner returns a Cleaner that sweeps log every ttl.
func NewCleaner(log *Log, ttl time.Duration, logger zerolog.Logger) *Cleaner {
	return &Cleaner{log: log, ttl: ttl, logger: logger.With().Str("component", "cleaner").Logger()}
}

// Run sleeps for ttl, then evicts the expired head prefix, repeating
// until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dropped := c.log.EvictExpired(c.ttl, now)
			if dropped > 0 {
				metrics.EvictionsTotal.Add(float64(dropped))
				metrics.LogSize.Set(float64(c.log.Count()))
				c.logger.Debug().Int("dropped", dropped).Msg("evicted expired log entries")
			}
		}
	}
}
