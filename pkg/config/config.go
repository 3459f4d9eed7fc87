// Package config loads the Gateway's and Sequencer's XML configuration
// files into immutable values passed explicitly to each component. The
// original carries this as a lazily-initialized singleton (Config::init/
// Config::instance); the spec's design notes call that out as unnecessary
// global state for a value that is known in full at startup, so here it is
// just a struct returned by Load and threaded through constructors.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
)

// GatewayConfig mirrors Exchange::Gateway::Config: the TCP listen port, the
// ingress hand-off queue's bound, and the epoll event-batch/listen-backlog
// sizes.
type GatewayConfig struct {
	Port          int `xml:"Port"`
	BlockingQueue struct {
		Size int `xml:"Size"`
	} `xml:"BlockingQueue"`
	Fix struct {
		MaxEventSize int `xml:"MaxEventSize"`
		BacklogSize  int `xml:"BacklogSize"`
	} `xml:"Fix"`

	// Ambient, optional: absent disables the corresponding component
	// without affecting the core Gateway/Sequencer path.
	Metrics *MetricsConfig `xml:"Metrics"`
	Monitor *MonitorConfig `xml:"Monitor"`
	Feed    *FeedConfig    `xml:"Feed"`
}

// SequencerConfig mirrors Exchange::Sequencer::Config::SeqConfig.
type SequencerConfig struct {
	Port          int `xml:"Port"`
	BlockingQueue struct {
		Size int `xml:"Size"`
	} `xml:"BlockingQueue"`
	Ipc struct {
		SequencerQueue      string `xml:"SequencerQueue"`
		MatchingEngineQueue string `xml:"MatchingEngineQueue"`
	} `xml:"Ipc"`

	Metrics *MetricsConfig `xml:"Metrics"`
	Feed    *FeedConfig    `xml:"Feed"`
}

// MetricsConfig configures the ambient Prometheus exporter (SPEC_FULL §1).
type MetricsConfig struct {
	Port string `xml:"Port"`
}

// MonitorConfig configures the ambient WebSocket operational feed
// (SPEC_FULL §4.I).
type MonitorConfig struct {
	Port string `xml:"Port"`
}

// FeedConfig configures the optional NATS publish-only sink (SPEC_FULL
// §4.I).
type FeedConfig struct {
	NatsURL string `xml:"NatsURL"`
	Subject string `xml:"Subject"`
}

// ExchangeConfig is the XML document root: <Exchange><Gateway>...
// </Gateway><Sequencer>...</Sequencer></Exchange>. A deployment typically
// runs one process per role and only populates the corresponding section.
type ExchangeConfig struct {
	XMLName   xml.Name         `xml:"Exchange"`
	Gateway   *GatewayConfig   `xml:"Gateway"`
	Sequencer *SequencerConfig `xml:"Sequencer"`
}

// Load reads and parses the XML configuration file at path.
func Load(path string) (*ExchangeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg ExchangeConfig
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadGateway reads path and returns its <Gateway> section, failing fatally
// (matching the original's ENG_THROW-on-missing-section semantics) if none
// is present.
func LoadGateway(path string) (*GatewayConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("config: %s has no <Gateway> section", path)
	}
	return cfg.Gateway, nil
}

// LoadSequencer reads path and returns its <Sequencer> section.
func LoadSequencer(path string) (*SequencerConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Sequencer == nil {
		return nil, fmt.Errorf("config: %s has no <Sequencer> section", path)
	}
	return cfg.Sequencer, nil
}
