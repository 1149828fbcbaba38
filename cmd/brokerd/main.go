// Command brokerd is a topic-based publish/subscribe message broker.
//
// Usage:
//
//	brokerd <ttl-spec> <subscriber-port> <publisher-port>...
//
// ttl-spec is the literal "session" (no eviction) or "<N>s" (N > 0
// seconds). Ambient settings not covered by this CLI surface — log
// level/format, the metrics listen address, the resource-monitor
// threshold, the ingress rate limit, the subscriber cap, and the
// optional NATS event bridge URL — are read from the environment; see
// internal/config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"brokerd/internal/bridge"
	"brokerd/internal/broker"
	"brokerd/internal/config"
	"brokerd/internal/logging"
	"brokerd/internal/metrics"
	"brokerd/internal/resource"
	"brokerd/internal/store"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <ttl-spec> <subscriber-port> <publisher-port>...\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "\nttl-spec:")
	fmt.Fprintln(os.Stderr, " - session: messages never get removed from the log.")
	fmt.Fprintln(os.Stderr, " - <N>s: messages get removed from the log after N seconds.")
	os.Exit(2)
}

// parseTTL returns (ttl, finite). finite is false for the "session"
// sentinel, in which case no cleaner is ever started.
func parseTTL(spec string) (time.Duration, bool) {
	if spec == "session" {
		return 0, false
	}
	if !strings.HasSuffix(spec, "s") {
		usage()
	}
	seconds, err := strconv.Atoi(strings.TrimSuffix(spec, "s"))
	if err != nil || seconds <= 0 {
		fmt.Fprintf(os.Stderr, "ERROR: messages can't last for %q seconds\n", spec)
		usage()
	}
	return time.Duration(seconds) * time.Second, true
}

func main() {
	const publisherPortsOffset = 3
	if len(os.Args) < publisherPortsOffset+1 {
		usage()
	}

	ttl, finite := parseTTL(os.Args[1])

	subscriberPort, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: invalid subscriber port %q\n", os.Args[2])
		usage()
	}

	publisherPorts := make([]int, 0, len(os.Args)-publisherPortsOffset)
	for _, arg := range os.Args[publisherPortsOffset:] {
		port, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: invalid publisher port %q\n", arg)
			usage()
		}
		publisherPorts = append(publisherPorts, port)
	}

	bootstrapLogger := logging.New(logging.Config{Level: "info", Format: "pretty"})

	cfg, err := config.Load(bootstrapLogger)
	if err != nil {
		bootstrapLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	cfg.Log(logger)

	if finite {
		logger.Info().Dur("ttl", ttl).Msg("messages last for a bounded TTL")
	} else {
		logger.Info().Msg("messages last for the whole session")
	}

	var eventBridge *bridge.Bridge
	if cfg.NATSURL != "" {
		eventBridge, err = bridge.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("event bridge disabled: could not connect to NATS")
			eventBridge = nil
		} else {
			defer eventBridge.Close()
		}
	}

	log := store.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := broker.New(log, eventBridge, broker.Config{
		IngressRatePerSec: cfg.IngressRatePerSec,
		IngressBurst:      cfg.IngressBurst,
		MaxSubscribers:    cfg.MaxSubscribers,
	}, logger)

	if finite {
		cleaner := store.NewCleaner(log, ttl, logger)
		go cleaner.Run(ctx)
	}

	go metrics.Serve(ctx, cfg.MetricsAddr, logger)
	go resource.New(cfg.MonitorInterval, cfg.MemoryWarnBytes, logger).Run(ctx)

	go func() {
		if err := b.ServeRegistrar(ctx, subscriberPort); err != nil {
			logger.Fatal().Err(err).Int("port", subscriberPort).Msg("subscriber registrar failed to bind")
		}
	}()

	for _, port := range publisherPorts {
		port := port
		go func() {
			if err := b.ServePublisher(ctx, port); err != nil {
				logger.Fatal().Err(err).Int("port", port).Msg("publisher ingress failed to bind")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	cancel()
	b.Wait()
}
