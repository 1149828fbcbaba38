// Package bridge is an optional, best-effort sink that republishes
// every appended message to NATS for external analytics consumers. It
// is fire-and-forget: a NATS outage never blocks or fails a
// publisher's append, matching spec.md's error-propagation stance that
// no component's failure should reach across task boundaries.
package bridge

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"brokerd/internal/metrics"
	"brokerd/internal/topic"
)

const appendSubject = "brokerd.log.append"

// Bridge holds a best-effort NATS connection. A nil *Bridge is valid
// and a no-op — callers do not need to branch on whether the bridge
// is enabled.
type Bridge struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// Connect dials url with the teacher's reconnect posture (bounded
// retries, jittered backoff) and returns a Bridge wrapping the
// connection. A connect failure is returned to the caller, who may
// choose to run without the bridge rather than treat it as fatal —
// the bridge is observability, not part of the broker's CORE contract.
func Connect(url string, logger zerolog.Logger) (*Bridge, error) {
	logger = logger.With().Str("component", "bridge").Logger()

	conn, err := nats.Connect(url,
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectJitter(500*time.Millisecond, 1*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("url", conn.ConnectedUrl()).Msg("connected to NATS event bridge")
	return &Bridge{conn: conn, logger: logger}, nil
}

type appendEnvelope struct {
	Topic     string `json:"topic"`
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// PublishAppend republishes msg to the bridge subject. A nil receiver
// is a no-op; a publish error is logged as a warning and counted in
// metrics, never returned — see the package doc.
func (b *Bridge) PublishAppend(msg topic.Message) {
	if b == nil {
		return
	}
	data, err := json.Marshal(appendEnvelope{
		Topic:     msg.Topic.String(),
		Value:     msg.Value,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		return
	}
	if err := b.conn.Publish(appendSubject, data); err != nil {
		metrics.BridgePublishFailures.Inc()
		b.logger.Warn().Err(err).Msg("failed to publish to event bridge")
	}
}

// Close closes the underlying connection; it does not drain it first.
// Safe on a nil Bridge.
func (b *Bridge) Close() {
	if b == nil || b.conn == nil {
		return
	}
	b.conn.Close()
}
