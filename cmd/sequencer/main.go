// Command sequencer attaches to the Gateway's shared-memory ring buffer as
// its sole consumer, decodes accepted orders, and forwards them to any
// configured downstream sinks.
package main

import (
	"flag"
	"os"

	"github.com/luxfi/log"

	"github.com/luxfi/fixgateway/internal/sequencerapp"
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

	cfg, err := config.LoadSequencer(*configPath)
	if err != nil {
		logger.Error("failed to load sequencer config", "error", err, "path", *configPath)
		os.Exit(1)
	}

	app, err := sequencerapp.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize sequencer", "error", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		logger.Error("sequencer exited with error", "error", err)
		os.Exit(1)
	}
}
