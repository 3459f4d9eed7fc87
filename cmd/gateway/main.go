// Command gateway is the FIX ingress process: it terminates client TCP
// connections, parses FIX messages, and forwards accepted orders to the
// Sequencer over the shared-memory ring buffer.
package main

import (
	"flag"
	"os"

	"github.com/luxfi/log"

	"github.com/luxfi/fixgateway/internal/gatewayapp"
	"github.com/luxfi/fixgateway/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/exchange.xml", "path to the exchange XML config file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error, off)")
	flag.Parse()

	level, err := log.ToLevel(*logLevel)
	if err != nil {
		level, _ = log.ToLevel("info")
	}
	logger := log.NewTestLogger(level)

	cfg, err := config.LoadGateway(*configPath)
	if err != nil {
		logger.Error("failed to load gateway config", "error", err, "path", *configPath)
		os.Exit(1)
	}

	app, err := gatewayapp.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize gateway", "error", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		logger.Error("gateway exited with error", "error", err)
		os.Exit(1)
	}
}
