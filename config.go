package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cwsl/ftx/ft8"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Decoder    ft8.DecoderConfig `yaml:"decoder"`
	Encoder    ft8.EncoderConfig `yaml:"encoder"`
	Station    StationConfig     `yaml:"station"`
	Logging    LoggingConfig     `yaml:"logging"`
	MQTT       MQTTConfig        `yaml:"mqtt"`
	Prometheus PrometheusConfig  `yaml:"prometheus"`
}

// StationConfig describes the receiving station
type StationConfig struct {
	Callsign      string `yaml:"callsign"`
	Locator       string `yaml:"locator"`        // Maidenhead locator used for distance and bearing
	DialFrequency uint64 `yaml:"dial_frequency"` // Hz, added to audio frequencies in published spots
	HashTableSize int    `yaml:"hash_table_size"`
	HashMaxAge    int    `yaml:"hash_max_age"` // Minutes a hashed callsign stays resolvable
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text, json or logfmt
}

// MQTTConfig contains MQTT spot publishing settings
type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled"`      // Enable/disable publishing decodes
	Broker      string        `yaml:"broker"`       // MQTT broker URL (e.g., tcp://mqtt.example.com:1883)
	Username    string        `yaml:"username"`     // MQTT authentication username
	Password    string        `yaml:"password"`     // MQTT authentication password
	TopicPrefix string        `yaml:"topic_prefix"` // Topic prefix for all spots
	QoS         byte          `yaml:"qos"`          // MQTT Quality of Service level (0, 1, or 2)
	Retain      bool          `yaml:"retain"`       // Retain flag for MQTT messages
	TLS         MQTTTLSConfig `yaml:"tls"`          // TLS/SSL settings
}

// MQTTTLSConfig contains MQTT TLS/SSL settings
type MQTTTLSConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Enable/disable TLS
	CACert     string `yaml:"ca_cert"`     // Path to CA certificate file
	ClientCert string `yaml:"client_cert"` // Path to client certificate file (optional)
	ClientKey  string `yaml:"client_key"`  // Path to client key file (optional)
}

// PrometheusConfig contains metrics settings
type PrometheusConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Pushgateway PushgatewayConfig `yaml:"pushgateway"` // Pushgateway configuration
}

// PushgatewayConfig contains Prometheus Pushgateway settings
type PushgatewayConfig struct {
	URL      string `yaml:"url"`      // Pushgateway URL (e.g., http://pushgateway:9091)
	Job      string `yaml:"job"`      // Job name, defaults to "ftx"
	Instance string `yaml:"instance"` // Instance label and basic auth username
	Token    string `yaml:"token"`    // Basic auth password
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Decoder: ft8.DefaultDecoderConfig(),
		Encoder: ft8.DefaultEncoderConfig(),
		Station: StationConfig{
			HashTableSize: ft8.DefaultHashTableSize,
			HashMaxAge:    60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		MQTT: MQTTConfig{
			TopicPrefix: "ftx",
		},
		Prometheus: PrometheusConfig{
			Pushgateway: PushgatewayConfig{Job: "ftx"},
		},
	}
}

// LoadConfig reads a YAML file over the defaults
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Decoder.Validate(); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	if err := c.Encoder.Validate(); err != nil {
		return fmt.Errorf("encoder: %w", err)
	}
	if c.Station.Locator != "" && !IsValidMaidenheadLocator(c.Station.Locator) {
		return fmt.Errorf("station: invalid locator %q", c.Station.Locator)
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt: broker is required when enabled")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt: qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
	}
	if c.Prometheus.Enabled && c.Prometheus.Pushgateway.URL == "" {
		return fmt.Errorf("prometheus: pushgateway url is required when enabled")
	}
	return nil
}

// newLogger builds the application logger from the logging section
func (c LoggingConfig) newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ftx",
	})
	if level, err := log.ParseLevel(c.Level); err == nil {
		logger.SetLevel(level)
	}
	switch strings.ToLower(c.Format) {
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	}
	return logger
}
