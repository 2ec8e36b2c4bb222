package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lobascore/lobascore/go/internal/bus"
)

// Config is the relay daemon's YAML configuration. Every field is optional;
// zero values fall back to the package defaults.
type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Bus struct {
		URL              string `yaml:"url"`
		SubjectPrefix    string `yaml:"subject_prefix"`
		ReconnectWaitSec int    `yaml:"reconnect_wait_seconds"`
	} `yaml:"bus"`
	Relay struct {
		NotifyChannel   string `yaml:"notify_channel"`
		PingIntervalSec int    `yaml:"ping_interval_seconds"`
	} `yaml:"relay"`
}

func loadConfig(path string) (*Config, error) {
	var config Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

func (c *Config) busConfig() bus.Config {
	cfg := bus.DefaultConfig()
	if url := getEnv("NATS_URL", c.Bus.URL); url != "" {
		cfg.URL = url
	}
	if c.Bus.SubjectPrefix != "" {
		cfg.SubjectPrefix = c.Bus.SubjectPrefix
	}
	if c.Bus.ReconnectWaitSec > 0 {
		cfg.ReconnectWait = time.Duration(c.Bus.ReconnectWaitSec) * time.Second
	}
	return cfg
}

func (c *Config) relayConfig(databaseURL string) bus.RelayConfig {
	cfg := bus.DefaultRelayConfig()
	cfg.DatabaseURL = databaseURL
	if c.Relay.NotifyChannel != "" {
		cfg.NotifyChannel = c.Relay.NotifyChannel
	}
	if c.Relay.PingIntervalSec > 0 {
		cfg.PingInterval = time.Duration(c.Relay.PingIntervalSec) * time.Second
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
