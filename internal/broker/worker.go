package broker

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"

	"brokerd/internal/metrics"
	"brokerd/internal/topic"
)

// runDeliveryWorker implements the per-subscriber state machine from
// spec.md §4.5: REPLAY (persistent only), then an unbounded STREAM
// loop that wakes on every log arrival and forwards either the full
// tail slice (persistent) or only the single latest entry
// (non-persistent, intentionally dropping any backlog between
// wake-ups).
func (b *Broker) runDeliveryWorker(ctx context.Context, reg registration, mode string) {
	logger := b.logger.With().Str("component", "worker").Str("endpoint", reg.endpoint()).Str("filter", reg.filter.String()).Logger()

	if reg.persistent {
		for _, msg := range b.log.Snapshot() {
			if topic.Matches(reg.filter, msg.Topic) {
				b.forward(reg, msg, mode, logger)
			}
		}
	}

	cursor := b.log.Count()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		newCount := b.waitForGrowthCancelable(ctx, cursor)
		if newCount < 0 {
			return // ctx cancelled while waiting
		}

		if reg.persistent {
			// last_count is clamped against the current count inside
			// Slice/WaitForGrowth, fixing the source's unsigned
			// underflow gap against head eviction (§9 REDESIGN FLAGS).
			for _, msg := range b.log.Slice(cursor, newCount) {
				if topic.Matches(reg.filter, msg.Topic) {
					b.forward(reg, msg, mode, logger)
				}
			}
		} else {
			if skipped := newCount - cursor - 1; skipped > 0 {
				metrics.NonPersistentSkipped.Add(float64(skipped))
			}
			if last, ok := b.log.Last(); ok {
				if topic.Matches(reg.filter, last.Topic) {
					b.forward(reg, last, mode, logger)
				}
			}
		}

		cursor = newCount
	}
}

// waitForGrowthCancelable wraps Log.WaitForGrowth (which blocks
// uninterruptibly on its condition variable) with ctx-cancellation:
// it returns -1 if ctx is done before growth is observed. The log
// itself has no notion of shutdown, so this races a goroutine against
// the blocking wait and discards whichever result loses; the losing
// goroutine leaks until the next append broadcasts, which is
// acceptable since the process exits shortly after cancellation.
func (b *Broker) waitForGrowthCancelable(ctx context.Context, cursor int) int {
	type result struct{ count int }
	ch := make(chan result, 1)
	go func() {
		ch <- result{count: b.log.WaitForGrowth(cursor)}
	}()

	select {
	case <-ctx.Done():
		return -1
	case r := <-ch:
		return r.count
	}
}

// forward opens a fresh outbound TCP connection to the subscriber's
// endpoint, writes the single rendered frame, and closes it — per
// spec.md §4.5's "forward of one message" steps and §9's rationale for
// not holding a persistent connection per subscriber.
func (b *Broker) forward(reg registration, msg topic.Message, mode string, logger zerolog.Logger) {
	conn, err := net.DialTimeout("tcp", reg.endpoint(), 5*time.Second)
	if err != nil {
		metrics.ForwardsTotal.WithLabelValues(mode, "connect_failed").Inc()
		logger.Warn().Err(err).Msg("failed to connect to subscriber endpoint")
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(msg.Forward())); err != nil {
		metrics.ForwardsTotal.WithLabelValues(mode, "write_failed").Inc()
		logger.Warn().Err(err).Msg("failed to forward message to subscriber")
		return
	}

	metrics.ForwardsTotal.WithLabelValues(mode, "ok").Inc()
}
