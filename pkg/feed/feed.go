// Package feed publishes accepted-order events to NATS for downstream
// consumers (risk systems, reporting) that want visibility into the
// Sequencer's ring-buffer traffic without being on its critical path. It
// supplements the original's bare stub ("Message received" printed to
// stdout) in process2/Sources/IPC/Consumer.h with a real integration
// point, while staying strictly additive: publish failures never affect
// ring-buffer consumption.
package feed

import (
	"encoding/json"
	"time"

	"github.com/luxfi/log"
	"github.com/nats-io/nats.go"
)

// OrderAccepted is the payload published for each envelope the Sequencer
// decodes successfully.
type OrderAccepted struct {
	OrderID  uint64 `json:"orderId"`
	Symbol   string `json:"symbol"`
	Side     int64  `json:"side"`
	Price    int64  `json:"price"`
	Qty      uint64 `json:"qty"`
	ClientID int64  `json:"clientId"`
}

// Sink is an optional, publish-only NATS connection. A nil *Sink (or one
// constructed with Connect returning an error that the caller chooses to
// ignore) simply means the feed is disabled; callers should treat Publish
// on a nil Sink as a safe no-op via PublishOrderAccepted's receiver check.
type Sink struct {
	conn    *nats.Conn
	subject string
	logger  log.Logger
}

// Connect dials url and returns a Sink publishing to subject. Matches the
// teacher's reconnect policy (infinite retries, 1s backoff) from
// cmd/persistent-server/main.go.
func Connect(url, subject string, logger log.Logger) (*Sink, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Sink{conn: conn, subject: subject, logger: logger}, nil
}

// Close closes the underlying NATS connection without draining it.
func (s *Sink) Close() {
	if s == nil || s.conn == nil {
		return
	}
	s.conn.Close()
}

// PublishOrderAccepted best-effort publishes an order-accepted event. A nil
// Sink is a silent no-op; any marshal or publish error is logged at Debug
// and otherwise ignored: this feed must never cause a Sequencer read to fail.
func (s *Sink) PublishOrderAccepted(o OrderAccepted) {
	if s == nil || s.conn == nil {
		return
	}
	payload, err := json.Marshal(o)
	if err != nil {
		s.logger.Debug("feed: failed to marshal order-accepted event", "error", err)
		return
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		s.logger.Debug("feed: publish failed", "error", err, "subject", s.subject)
	}
}
