package config

import (
	"io/ioutil"

	"github.com/ipfs-force-community/metrics"
	"github.com/pelletier/go-toml"

	"github.com/pollum-io/pali-gateway/types"
)

const (
	// Configuration file name
	ConfigFile = "config.toml"
)

type Config struct {
	API     *APIConfig
	Keyring *KeyringConfig
	Request *types.RequestConfig
	Popup   *types.AutoCloseConfig
	Metrics *metrics.MetricsConfig
	Trace   *metrics.TraceConfig
}

type APIConfig struct {
	ListenAddress string
}

// KeyringConfig points at the wallet-core service holding keys and chain
// access. An empty URL runs the gateway against the in-memory keyring, which
// only makes sense for development.
type KeyringConfig struct {
	URL   string
	Token string
}

func DefaultConfig() *Config {
	cfg := &Config{
		API:     &APIConfig{ListenAddress: "/ip4/127.0.0.1/tcp/45321"},
		Keyring: &KeyringConfig{URL: "", Token: ""},
		Request: types.DefaultRequestConfig(),
		Popup:   types.DefaultAutoCloseConfig(),
		Metrics: metrics.DefaultMetricsConfig(),
		Trace:   metrics.DefaultTraceConfig(),
	}
	namespace := "gateway"
	cfg.Metrics.Exporter.Prometheus.Namespace = namespace
	cfg.Metrics.Exporter.Graphite.Namespace = namespace
	cfg.Metrics.Exporter.Prometheus.EndPoint = "/ip4/0.0.0.0/tcp/4569"
	cfg.Metrics.Exporter.Graphite.Port = 4569
	cfg.Trace.ServerName = "pali-gateway"
	cfg.Trace.JaegerEndpoint = ""

	return cfg
}

func ReadConfig(filePath string) (*Config, error) {
	data, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = toml.Unmarshal(data, cfg)

	return cfg, err
}

func WriteConfig(filePath string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(filePath, data, 0644)
}
