package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwsl/ftx/ft8"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err      error
	timedOut bool
}

func (t *fakeToken) Wait() bool                     { return !t.timedOut }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timedOut }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	messages     []published
	token        *fakeToken
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func testDecodes() []DecodeInfo {
	ts := time.Date(2024, 1, 2, 12, 34, 45, 0, time.UTC)
	return []DecodeInfo{
		NewDecodeInfo(ft8.DecodedMessage{Text: "CQ W1ABC FN42", Type: ft8.MessageTypeStandard, SNR: -3, Frequency: 1000, Protocol: ft8.ProtocolFT8}, "c1", ts, StationConfig{}),
		NewDecodeInfo(ft8.DecodedMessage{Text: "TNX BOB 73 GL", Type: ft8.MessageTypeFreeText, SNR: 2, Frequency: 1500, Protocol: ft8.ProtocolFT4}, "c1", ts, StationConfig{}),
	}
}

func TestPublishDecodes(t *testing.T) {
	client := &fakeClient{}
	mp := &MQTTPublisher{client: client, config: &MQTTConfig{TopicPrefix: "radio/", QoS: 1, Retain: true}}

	require.NoError(t, mp.PublishDecodes(testDecodes()))
	require.Len(t, client.messages, 2)

	assert.Equal(t, "radio/spots/FT8", client.messages[0].topic)
	assert.Equal(t, "radio/spots/FT4", client.messages[1].topic)
	assert.Equal(t, byte(1), client.messages[0].qos)
	assert.True(t, client.messages[0].retained)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &decoded))
	assert.Equal(t, "CQ W1ABC FN42", decoded["message"])
	assert.Equal(t, "FT8", decoded["mode"])
	assert.Equal(t, "STANDARD", decoded["type"])
	assert.Equal(t, "W1ABC", decoded["callsign"])
	assert.Equal(t, "FN42", decoded["locator"])
	assert.Equal(t, float64(-3), decoded["snr"])
	assert.NotContains(t, decoded, "distance_km")

	mp.Close()
	assert.True(t, client.disconnected)
}

func TestPublishDecodesDefaultPrefix(t *testing.T) {
	client := &fakeClient{}
	mp := &MQTTPublisher{client: client, config: &MQTTConfig{}}
	require.NoError(t, mp.PublishDecodes(testDecodes()[:1]))
	assert.Equal(t, "ftx/spots/FT8", client.messages[0].topic)
}

func TestPublishDecodesErrors(t *testing.T) {
	client := &fakeClient{token: &fakeToken{err: errors.New("not connected")}}
	mp := &MQTTPublisher{client: client, config: &MQTTConfig{}}
	err := mp.PublishDecodes(testDecodes())
	assert.ErrorContains(t, err, "not connected")
	assert.Len(t, client.messages, 1)

	client = &fakeClient{token: &fakeToken{timedOut: true}}
	mp = &MQTTPublisher{client: client, config: &MQTTConfig{}}
	assert.ErrorContains(t, mp.PublishDecodes(testDecodes()), "timed out")
}

func TestGenerateClientID(t *testing.T) {
	id := generateClientID()
	assert.True(t, strings.HasPrefix(id, "ftx_"))
	assert.Len(t, id, 20)
	assert.NotEqual(t, id, generateClientID())
}

func TestLoadTLSConfig(t *testing.T) {
	config, err := loadTLSConfig(MQTTTLSConfig{})
	require.NoError(t, err)
	assert.Nil(t, config)

	config, err = loadTLSConfig(MQTTTLSConfig{Enabled: true})
	require.NoError(t, err)
	assert.NotNil(t, config)

	_, err = loadTLSConfig(MQTTTLSConfig{Enabled: true, CACert: filepath.Join(t.TempDir(), "missing.pem")})
	assert.ErrorContains(t, err, "failed to read CA certificate")
}
