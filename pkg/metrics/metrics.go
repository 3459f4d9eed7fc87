// Package metrics exposes Prometheus counters/gauges for the Gateway and
// Sequencer, in the style of the teacher's pkg/metrics/lux_metrics.go: a
// dedicated registry, one field per instrument, constructed and registered
// in New, with a StartServer that serves /metrics in a goroutine.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument the Gateway/Sequencer path exposes.
type Metrics struct {
	namespace string
	registry  *prometheus.Registry
	logger    log.Logger

	ordersDispatched  prometheus.Counter
	ordersDropped     prometheus.Counter
	logonsReceived    prometheus.Counter
	invalidFixDropped prometheus.Counter

	ringBufferFull prometheus.Counter
	ringWriteOK    prometheus.Counter

	ingressQueueDepth prometheus.Gauge
	workerTaskQueue   prometheus.GaugeVec
}

// New constructs and registers every instrument under namespace.
func New(namespace string, logger log.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		namespace: namespace,
		registry:  registry,
		logger:    logger,

		ordersDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "orders_dispatched_total",
			Help: "Total new-order envelopes written to the ring buffer",
		}),
		ordersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "orders_dropped_total",
			Help: "Total orders dropped because the ring buffer write failed",
		}),
		logonsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "logons_received_total",
			Help: "Total FIX Logon messages received",
		}),
		invalidFixDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "invalid_fix_dropped_total",
			Help: "Total raw frames dropped for failing FIX validation",
		}),
		ringBufferFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ring_buffer_full_total",
			Help: "Total producer writes rejected because the ring buffer was full",
		}),
		ringWriteOK: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ring_buffer_writes_total",
			Help: "Total successful producer writes to the ring buffer",
		}),
		ingressQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ingress_queue_depth",
			Help: "Current number of RawPacket values buffered in the ingress hand-off queue",
		}),
		workerTaskQueue: *prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "worker_pending_tasks",
			Help: "Current number of pending tasks per named worker",
		}, []string{"worker"}),
	}

	registry.MustRegister(
		m.ordersDispatched,
		m.ordersDropped,
		m.logonsReceived,
		m.invalidFixDropped,
		m.ringBufferFull,
		m.ringWriteOK,
		m.ingressQueueDepth,
		m.workerTaskQueue,
	)

	return m
}

// StartServer serves /metrics on port in a background goroutine.
func (m *Metrics) StartServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			m.logger.Error("metrics server failed", "error", err)
		}
	}()
	m.logger.Info("metrics available", "endpoint", fmt.Sprintf("http://localhost:%s/metrics", port))
}

func (m *Metrics) RecordOrderDispatched() { m.ordersDispatched.Inc() }
func (m *Metrics) RecordOrderDropped()    { m.ordersDropped.Inc() }
func (m *Metrics) RecordLogon()           { m.logonsReceived.Inc() }
func (m *Metrics) RecordInvalidFix()      { m.invalidFixDropped.Inc() }
func (m *Metrics) RecordRingFull()        { m.ringBufferFull.Inc() }
func (m *Metrics) RecordRingWriteOK()     { m.ringWriteOK.Inc() }

func (m *Metrics) SetIngressQueueDepth(n int) { m.ingressQueueDepth.Set(float64(n)) }
func (m *Metrics) SetWorkerPendingTasks(worker string, n int) {
	m.workerTaskQueue.WithLabelValues(worker).Set(float64(n))
}
