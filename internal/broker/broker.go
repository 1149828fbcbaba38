// Package broker wires the topic matcher and message log into the
// broker's three long-lived concurrent surfaces: publisher ingress,
// the subscriber registrar, and the per-subscriber delivery workers
// the registrar spawns.
package broker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"brokerd/internal/bridge"
	"brokerd/internal/metrics"
	"brokerd/internal/store"
	"brokerd/internal/topic"
)

// Config holds the ambient limits that shape ingress and admission but
// are not part of spec.md's CLI surface.
type Config struct {
	IngressRatePerSec float64
	IngressBurst      int
	MaxSubscribers    int
}

// Broker holds the shared message log and subscriber admission table,
// and spawns the listener goroutines that read and write it.
type Broker struct {
	log    *store.Log
	table  *subscriberTable
	bridge *bridge.Bridge
	logger zerolog.Logger
	cfg    Config

	activeSubscribers atomic.Int64
	wg                sync.WaitGroup
}

// New returns a Broker over log. bridge may be nil, which disables
// the event-bridge publish on every append.
func New(log *store.Log, b *bridge.Bridge, cfg Config, logger zerolog.Logger) *Broker {
	return &Broker{
		log:    log,
		table:  newSubscriberTable(),
		bridge: b,
		cfg:    cfg,
		logger: logger,
	}
}

// append is the single path by which every accepted publisher message
// reaches the log: append, bump metrics, then best-effort republish to
// the event bridge.
func (b *Broker) append(msg topic.Message) {
	b.log.Append(msg)
	metrics.MessagesAppended.Inc()
	metrics.LogSize.Set(float64(b.log.Count()))
	b.bridge.PublishAppend(msg)
}

// Wait blocks until every goroutine the Broker has spawned (ingress
// connection handlers, delivery workers) has returned. It does not by
// itself cause those goroutines to exit — callers cancel ctx first.
func (b *Broker) Wait() {
	b.wg.Wait()
}
