package main

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const mqttPublishTimeout = 10 * time.Second

// mqttClient is the subset of mqtt.Client used for publishing
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes decoded spots as JSON
type MQTTPublisher struct {
	client mqttClient
	config *MQTTConfig
}

// generateClientID creates a random client ID for MQTT connection
func generateClientID() string {
	return "ftx_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// loadTLSConfig loads TLS configuration from files
func loadTLSConfig(tlsConfig MQTTTLSConfig) (*tls.Config, error) {
	if !tlsConfig.Enabled {
		return nil, nil
	}

	config := &tls.Config{}

	if tlsConfig.CACert != "" {
		caCert, err := os.ReadFile(tlsConfig.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		config.RootCAs = caCertPool
	}

	if tlsConfig.ClientCert != "" && tlsConfig.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.ClientCert, tlsConfig.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}

// NewMQTTPublisher connects to the configured broker
func NewMQTTPublisher(config *MQTTConfig) (*MQTTPublisher, error) {
	logger := appLogger.WithPrefix("mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(generateClientID())

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	opts.SetConnectTimeout(mqttPublishTimeout)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	if config.TLS.Enabled {
		tlsConfig, err := loadTLSConfig(config.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn("connection lost", "err", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Info("connected to broker", "broker", config.Broker)
	return &MQTTPublisher{client: client, config: config}, nil
}

// spotTopic returns the topic for a decode, e.g. ftx/spots/FT8
func (mp *MQTTPublisher) spotTopic(info DecodeInfo) string {
	prefix := strings.TrimSuffix(mp.config.TopicPrefix, "/")
	if prefix == "" {
		prefix = "ftx"
	}
	return fmt.Sprintf("%s/spots/%s", prefix, info.Mode)
}

// PublishDecodes publishes one JSON message per decode
func (mp *MQTTPublisher) PublishDecodes(decodes []DecodeInfo) error {
	for _, info := range decodes {
		payload, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to marshal spot: %w", err)
		}

		token := mp.client.Publish(mp.spotTopic(info), mp.config.QoS, mp.config.Retain, payload)
		if !token.WaitTimeout(mqttPublishTimeout) {
			return fmt.Errorf("timed out publishing spot %q", info.Message)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish spot: %w", err)
		}
	}
	return nil
}

// Close disconnects from the broker
func (mp *MQTTPublisher) Close() {
	mp.client.Disconnect(250)
}

// newCycleID identifies one decode run across published spots
func newCycleID() string {
	return uuid.NewString()
}
