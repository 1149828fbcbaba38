package broker

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"brokerd/internal/metrics"
	"brokerd/internal/topic"
)

// ServePublisher binds port and runs the publisher-ingress accept loop
// until ctx is cancelled. One goroutine handles each accepted
// connection's frame stream.
func (b *Broker) ServePublisher(ctx context.Context, port int) error {
	logger := b.logger.With().Str("component", "ingress").Int("port", port).Logger()

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	logger.Info().Msg("listening for publishers")

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

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handlePublisherConn(conn, logger)
		}()
	}
}

// handlePublisherConn reads the connection's byte stream, reassembling
// newline-delimited frames across read() boundaries: bytes from a read
// that do not end in a complete line are retained as a prefix for the
// next read rather than being parsed (and dropped) prematurely. This
// is the one deliberate behavior change from the original C source,
// which parses directly from its fixed read buffer and loses any
// partial trailing frame when it spans two reads.
func (b *Broker) handlePublisherConn(conn net.Conn, logger zerolog.Logger) {
	defer conn.Close()

	limiter := rate.NewLimiter(rate.Limit(b.cfg.IngressRatePerSec), b.cfg.IngressBurst)

	reader := bufio.NewReader(conn)
	var pending strings.Builder

	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			pending.Write(buf[:n])
			b.drainFrames(&pending, limiter, logger)
		}
		if err != nil {
			if err == io.EOF {
				logger.Debug().Msg("publisher disconnected")
			} else {
				logger.Warn().Err(err).Msg("read failed, closing connection")
			}
			return
		}
	}
}

// drainFrames extracts every complete newline-terminated frame from
// pending, leaving any incomplete trailing fragment in place.
func (b *Broker) drainFrames(pending *strings.Builder, limiter *rate.Limiter, logger zerolog.Logger) {
	text := pending.String()
	lastNL := strings.LastIndexByte(text, '\n')
	if lastNL < 0 {
		return
	}

	complete := text[:lastNL]
	rest := text[lastNL+1:]
	pending.Reset()
	pending.WriteString(rest)

	for _, frame := range strings.Split(complete, "\n") {
		if frame == "" {
			continue
		}
		if !limiter.Allow() {
			metrics.MessagesRejected.WithLabelValues("rate_limited").Inc()
			continue
		}
		b.handlePublisherFrame(frame, logger)
	}
}

func (b *Broker) handlePublisherFrame(frame string, logger zerolog.Logger) {
	t, value, err := topic.ParsePublisherFrame(frame)
	if err != nil {
		metrics.MessagesRejected.WithLabelValues("malformed_frame").Inc()
		logger.Warn().Err(err).Str("frame", frame).Msg("rejected publisher frame")
		return
	}

	b.append(topic.Message{Topic: t, Value: value})
}
