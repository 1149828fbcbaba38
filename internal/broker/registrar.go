package broker

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"brokerd/internal/metrics"
)

// ServeRegistrar binds port and runs the subscriber-registration
// accept loop until ctx is cancelled. Each connection carries exactly
// one registration line; the registrar parses it, applies admission,
// and on success spawns a delivery worker owning the registration.
func (b *Broker) ServeRegistrar(ctx context.Context, port int) error {
	logger := b.logger.With().Str("component", "registrar").Int("port", port).Logger()

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	logger.Info().Msg("listening for subscriber registrations")

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Error().Err(err).Msg("accept failed")
				continue
			}
		}
		b.handleRegistration(ctx, conn, logger)
	}
}

func (b *Broker) handleRegistration(ctx context.Context, conn net.Conn, logger zerolog.Logger) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		logger.Warn().Err(err).Msg("registration not newline-terminated, rejecting")
		metrics.SubscribersRejected.WithLabelValues("malformed_frame").Inc()
		return
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	reg, err := parseRegistration(line)
	if err != nil {
		logger.Warn().Err(err).Str("line", line).Msg("rejected subscriber registration")
		metrics.SubscribersRejected.WithLabelValues("malformed_frame").Inc()
		return
	}

	if int(b.activeSubscribers.Load()) >= b.cfg.MaxSubscribers {
		logger.Warn().Str("endpoint", reg.endpoint()).Msg("rejected subscriber: worker capacity exhausted")
		metrics.SubscribersRejected.WithLabelValues("capacity").Inc()
		return
	}

	if !reg.persistent {
		if !b.table.admitNonPersistent(reg.port) {
			logger.Info().Str("endpoint", reg.endpoint()).Msg("rejected duplicate non-persistent subscriber")
			metrics.SubscribersRejected.WithLabelValues("duplicate_port").Inc()
			return
		}
	}

	mode := "non-persistent"
	if reg.persistent {
		mode = "persistent"
	}
	logger.Info().Str("endpoint", reg.endpoint()).Str("filter", reg.filter.String()).Str("mode", mode).Msg("admitted subscriber")

	b.activeSubscribers.Add(1)
	metrics.SubscribersActive.WithLabelValues(mode).Inc()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.activeSubscribers.Add(-1)
		defer metrics.SubscribersActive.WithLabelValues(mode).Dec()
		b.runDeliveryWorker(ctx, reg, mode)
	}()
}
