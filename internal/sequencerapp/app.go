// Package sequencerapp wires together the Sequencer's components: a ring
// buffer consumer reading envelopes from the Gateway, and optional
// metrics/feed publishing on each successfully decoded envelope. The
// Sequencer has no monitor (WebSocket) output.
// Grounded on process2/main.cpp and process2/Sources/IPC/Consumer.h, whose
// run() loop is a bare read-decode-print; this supplements it with real
// downstream integration points while keeping the same poll-and-decode
// shape.
package sequencerapp

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/fixgateway/pkg/config"
	"github.com/luxfi/fixgateway/pkg/feed"
	"github.com/luxfi/fixgateway/pkg/ipc/envelope"
	"github.com/luxfi/fixgateway/pkg/ipc/ring"
	"github.com/luxfi/fixgateway/pkg/metrics"
)

const (
	ringSegmentName = "gateway_to_sequencer"
	pollInterval    = 1 * time.Millisecond
	forceExitGrace  = 3 * time.Second
)

// App is the top-level Sequencer process supervisor.
type App struct {
	cfg    *config.SequencerConfig
	logger log.Logger

	consumer *ring.Consumer
	metrics  *metrics.Metrics
	feedSink *feed.Sink

	stopped           atomic.Bool
	shutdownRequested atomic.Bool

	envelopesDecoded atomic.Uint64
	decodeErrors     atomic.Uint64
}

// New attaches to the Gateway's ring buffer segment as the sole consumer and
// wires any configured metrics/feed sinks.
func New(cfg *config.SequencerConfig, logger log.Logger) (*App, error) {
	consumer, err := ring.NewConsumer(ringSegmentName, logger)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, consumer: consumer}

	if cfg.Metrics != nil {
		a.metrics = metrics.New("sequencer", logger)
	}
	if cfg.Feed != nil && cfg.Feed.NatsURL != "" {
		sink, err := feed.Connect(cfg.Feed.NatsURL, cfg.Feed.Subject, logger)
		if err != nil {
			// The feed is a best-effort downstream integration; a dead NATS
			// server must never prevent the Sequencer from consuming the
			// ring buffer.
			logger.Warn("sequencer: feed connect failed, continuing without it", "error", err)
		} else {
			a.feedSink = sink
		}
	}

	return a, nil
}

// Run starts the ring-buffer read loop and installs SIGINT/SIGTERM
// handling. It blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("launching sequencer")

	if a.metrics != nil {
		a.metrics.StartServer(a.cfg.Metrics.Port)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		a.logger.Info("shutdown signal received")
		a.Stop()
	}()

	go func() {
		for !a.shutdownRequested.Load() {
			time.Sleep(100 * time.Millisecond)
		}
		a.stopped.Store(true)
	}()

	for !a.stopped.Load() {
		payload, err := a.consumer.Read(pollInterval, a.stopped.Load)
		if err != nil {
			// ErrEmpty here means Read gave up because stopped() became
			// true while waiting; any other error is a segment-level
			// problem that a retry of Read cannot fix.
			if err != ring.ErrEmpty {
				a.logger.Error("sequencer: ring read failed", "error", err)
			}
			continue
		}
		a.handleEnvelope(payload)
	}

	a.logger.Info("sequencer shutdown complete",
		"envelopes_decoded", a.envelopesDecoded.Load(),
		"decode_errors", a.decodeErrors.Load())
	a.consumer.Close()
	if a.feedSink != nil {
		a.feedSink.Close()
	}
	return nil
}

// Stop requests graceful shutdown of the consumer loop. A detached
// safety-net goroutine force-exits if Read never returns.
func (a *App) Stop() {
	if !a.shutdownRequested.CompareAndSwap(false, true) {
		return
	}
	go func() {
		time.Sleep(forceExitGrace)
		a.logger.Warn("force exit after shutdown timeout")
		os.Exit(0)
	}()
}

// handleEnvelope decodes one ring-buffer payload and forwards it to any
// configured downstream sinks. Run's read loop calls it with each payload
// consumer.Read returns.
func (a *App) handleEnvelope(payload []byte) {
	msg, err := envelope.Decode(payload)
	if err != nil {
		a.decodeErrors.Add(1)
		a.logger.Warn("sequencer: failed to decode envelope", "error", err)
		return
	}
	a.envelopesDecoded.Add(1)

	symbol, _ := msg.String(envelope.FieldSymbol)
	side, _ := msg.Int64(envelope.FieldSide)
	price, _ := msg.Int64(envelope.FieldPrice)
	qty, _ := msg.Uint64(envelope.FieldQty)
	clientID, _ := msg.Int64(envelope.FieldClientID)
	orderID, _ := msg.Uint64(envelope.FieldOrderID)

	if a.feedSink != nil {
		a.feedSink.PublishOrderAccepted(feed.OrderAccepted{
			OrderID: orderID, Symbol: symbol, Side: side,
			Price: price, Qty: qty, ClientID: clientID,
		})
	}
	if a.metrics != nil {
		a.metrics.RecordOrderDispatched()
	}
}
