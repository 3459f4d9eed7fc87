// Package gatewayapp wires together the Gateway's components (scheduler,
// ingress queue, TCP listener, FIX dispatcher) the way Gateway.cpp and
// GatewayScheduler.h construct and run them, adapted to Go's goroutine and
// signal-handling idioms in place of pthreads and sigaction.
package gatewayapp

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/fixgateway/pkg/config"
	"github.com/luxfi/fixgateway/pkg/fix"
	"github.com/luxfi/fixgateway/pkg/ipc/ring"
	"github.com/luxfi/fixgateway/pkg/metrics"
	"github.com/luxfi/fixgateway/pkg/monitor"
	"github.com/luxfi/fixgateway/pkg/netio"
	"github.com/luxfi/fixgateway/pkg/queue"
	"github.com/luxfi/fixgateway/pkg/scheduler"
	"github.com/luxfi/fixgateway/pkg/worker"
)

const (
	listenerWorkerName   = "gateway_listener"
	dispatcherWorkerName = "gateway_dispatcher"
	ringSegmentName      = "gateway_to_sequencer"

	mainLoopPollInterval = 100 * time.Millisecond
	shutdownSettleDelay  = 2 * time.Second
	forceExitGrace       = 3 * time.Second
)

// App is the top-level Gateway process supervisor.
type App struct {
	cfg    *config.GatewayConfig
	logger log.Logger

	scheduler *scheduler.Scheduler
	ingressQ  *queue.Queue[netio.RawPacket]
	listener  *netio.Listener
	dispatch  *fix.Dispatcher
	producer  *ring.Producer
	metrics   *metrics.Metrics
	mon       *monitor.Server

	stopNetwork       atomic.Bool
	shutdownRequested atomic.Bool
}

// New creates the ring producer, then constructs the remaining Gateway
// components in the original's order: scheduler, then ingress queue, then
// listener, then dispatcher.
func New(cfg *config.GatewayConfig, logger log.Logger) (*App, error) {
	producer, err := ring.NewProducer(ringSegmentName, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		scheduler: scheduler.New(logger),
		ingressQ:  queue.New[netio.RawPacket](cfg.BlockingQueue.Size),
		producer:  producer,
	}

	a.listener = netio.New(cfg.Port, cfg.Fix.MaxEventSize, a.ingressQ, logger)
	a.dispatch = fix.New(a.ingressQ, producer, logger)

	if cfg.Metrics != nil {
		a.metrics = metrics.New("gateway", logger)
		a.dispatch.WithMetrics(a.metrics)
	}
	if cfg.Monitor != nil {
		a.mon = monitor.NewServer(logger)
	}

	if _, err := a.scheduler.CreateWorkers(listenerWorkerName, dispatcherWorkerName); err != nil {
		producer.Close()
		return nil, err
	}
	return a, nil
}

// Run starts every worker, installs SIGINT/SIGTERM handling, and blocks
// until a shutdown signal arrives, then tears the Gateway down.
func (a *App) Run() error {
	a.logger.Info("launching gateway")

	a.scheduler.Start()

	if a.metrics != nil {
		a.metrics.StartServer(a.cfg.Metrics.Port)
	}
	if a.mon != nil {
		go func() {
			if err := a.mon.Start(a.cfg.Monitor.Port); err != nil {
				a.logger.Error("monitor server failed", "error", err)
			}
		}()
	}

	listenerWorker, _ := a.scheduler.GetWorker(listenerWorkerName)
	listenerWorker.Submit(worker.NewTask("listens to network requests from clients", func(*worker.CancelToken) {
		if err := a.listener.Run(&a.stopNetwork); err != nil {
			a.logger.Error("listener exited with error", "error", err)
		}
	}))

	dispatcherWorker, _ := a.scheduler.GetWorker(dispatcherWorkerName)
	dispatcherWorker.Submit(worker.NewTask("dispatches valid requests to the sequencer", func(*worker.CancelToken) {
		a.dispatch.Run()
	}))

	a.logger.Info("gateway is running, send SIGINT/SIGTERM to shut down")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		a.logger.Info("shutdown signal received")
		a.Stop()
	}()

	for !a.shutdownRequested.Load() {
		time.Sleep(mainLoopPollInterval)
	}

	a.logger.Info("shutdown initiated, exiting shortly")
	time.Sleep(time.Second)
	return nil
}

// Stop requests a graceful shutdown: the network stop flag is set, a grace
// period is given for in-flight reads/dispatches to settle, then every
// worker is stopped and joined. A detached safety-net goroutine force-exits
// the process if shutdown hangs, matching Gateway::stop()'s 3-second
// force-exit thread.
func (a *App) Stop() {
	if !a.shutdownRequested.CompareAndSwap(false, true) {
		return
	}

	go func() {
		time.Sleep(forceExitGrace)
		a.logger.Warn("force exit after shutdown timeout")
		os.Exit(0)
	}()

	a.stopNetwork.Store(true)
	a.logger.Info("network stop signal sent, waiting for clean shutdown")
	time.Sleep(shutdownSettleDelay)

	a.scheduler.Shutdown()
	a.producer.Close()
	if a.mon != nil {
		a.mon.Stop()
	}
	a.logger.Info("gateway shutdown complete")
}
