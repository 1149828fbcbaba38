// Package resource periodically samples process memory via gopsutil
// and logs a warning when usage exceeds a configured threshold. This
// is pure observability: spec.md defines no capacity-based admission
// gate, so the broker never rejects connections on resource pressure —
// it only surfaces the signal for operators.
package resource

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"

	"brokerd/internal/metrics"
)

// Monitor samples the broker process's resident memory at a fixed
// interval and warns when it crosses warnBytes.
type Monitor struct {
	interval  time.Duration
	warnBytes uint64
	logger    zerolog.Logger
}

// New returns a Monitor that samples every interval and warns above
// warnBytes of resident memory.
func New(interval time.Duration, warnBytes uint64, logger zerolog.Logger) *Monitor {
	return &Monitor{
		interval:  interval,
		warnBytes: warnBytes,
		logger:    logger.With().Str("component", "resource_monitor").Logger(),
	}
}

// Run samples until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.logger.Warn().Err(err).Msg("could not attach to own process for resource monitoring")
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(proc)
		}
	}
}

func (m *Monitor) sample(proc *process.Process) {
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return
	}
	metrics.ResourceMemoryBytes.Set(float64(info.RSS))
	if info.RSS > m.warnBytes {
		m.logger.Warn().
			Uint64("rss_bytes", info.RSS).
			Uint64("warn_threshold_bytes", m.warnBytes).
			Msg("process memory usage above warning threshold")
	}
}
