// Package metrics exposes Prometheus counters and gauges for the
// broker's log, fan-out, and admission paths on a /metrics endpoint.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	MessagesAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "brokerd_messages_appended_total",
		Help: "Total number of publisher messages appended to the log",
	})

	MessagesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerd_messages_rejected_total",
		Help: "Total number of ingress frames rejected, by reason",
	}, []string{"reason"})

	LogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "brokerd_log_size",
		Help: "Current number of entries in the message log",
	})

	EvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "brokerd_evictions_total",
		Help: "Total number of log entries evicted by the retention cleaner",
	})

	SubscribersActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "brokerd_subscribers_active",
		Help: "Current number of active delivery workers, by mode",
	}, []string{"mode"})

	SubscribersRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerd_subscribers_rejected_total",
		Help: "Total number of subscriber registrations rejected, by reason",
	}, []string{"reason"})

	ForwardsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerd_forwards_total",
		Help: "Total number of messages forwarded to subscribers, by mode and outcome",
	}, []string{"mode", "outcome"})

	NonPersistentSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "brokerd_non_persistent_skipped_total",
		Help: "Total number of intermediate appends a non-persistent subscriber never saw between wake-ups",
	})

	ResourceMemoryBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "brokerd_process_memory_bytes",
		Help: "Current process resident memory in bytes, as sampled by gopsutil",
	})

	BridgePublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "brokerd_bridge_publish_failures_total",
		Help: "Total number of failed best-effort publishes to the NATS event bridge",
	})
)

func init() {
	prometheus.MustRegister(
		MessagesAppended,
		MessagesRejected,
		LogSize,
		EvictionsTotal,
		SubscribersActive,
		SubscribersRejected,
		ForwardsTotal,
		NonPersistentSkipped,
		ResourceMemoryBytes,
		BridgePublishFailures,
	)
}

// Serve starts the Prometheus HTTP endpoint on addr and blocks until
// ctx is cancelled or the listener fails.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics endpoint stopped")
	}
}
