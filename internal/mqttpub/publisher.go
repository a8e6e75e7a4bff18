// Package mqttpub optionally republishes fleet stats snapshots to an MQTT
// broker, modeled on the teacher's WSPR-spot publisher.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"time"

	charmlog "github.com/charmbracelet/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/marisusis/sdr-scraper/internal/config"
)

// StatsMessage is the JSON payload published per station on every fleet
// stats tick.
type StatsMessage struct {
	Name          string  `json:"name"`
	Band          string  `json:"band"`
	RSSI          float64 `json:"rssi"`
	RSSIMeanDbm   float64 `json:"rssi_mean_dbm"`
	RSSIStddevDbm float64 `json:"rssi_stddev_dbm"`
	Connected     bool    `json:"connected"`
	Reconnects    uint64  `json:"reconnects"`
}

// Publisher wraps a paho MQTT client configured for auto-reconnect.
type Publisher struct {
	client mqtt.Client
	cfg    *config.MQTTConfig
	log    *charmlog.Logger
}

// New connects to the broker described by cfg. It returns (nil, nil) when
// cfg is nil or disabled — callers treat a nil *Publisher as "no publisher"
// throughout the fleet. The initial connection attempt is best-effort: a
// broker that's down at startup does not prevent the fleet from running,
// since paho's auto-reconnect will keep retrying in the background.
func New(cfg *config.MQTTConfig, logger *charmlog.Logger) (*Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = charmlog.Default()
	}

	opts := mqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.UseTLS {
		scheme = "tls"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
	opts.AddBroker(brokerURL)
	opts.SetClientID(generateClientID())

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("connected to broker", "broker", brokerURL)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("connection lost, will auto-reconnect", "err", err)
	})

	client := mqtt.NewClient(opts)

	logger.Info("connecting to broker", "broker", brokerURL)
	token := client.Connect()
	if token.WaitTimeout(5 * time.Second) {
		if err := token.Error(); err != nil {
			logger.Warn("initial connection failed, retrying in background", "err", err)
		}
	} else {
		logger.Warn("connection attempt timed out, retrying in background")
	}

	return &Publisher{client: client, cfg: cfg, log: logger}, nil
}

func generateClientID() string {
	return "kiwiscrape_" + uuid.NewString()
}

// Publish sends one station's stats snapshot to
// {topic_prefix}/kiwiscrape/{station}/stats. Failures are logged and
// otherwise ignored — a flaky broker never blocks the fleet's stats loop.
func (p *Publisher) Publish(station string, msg StatsMessage) {
	if p == nil || p.client == nil || !p.client.IsConnected() {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Warn("failed to marshal stats message", "station", station, "err", err)
		return
	}

	topic := fmt.Sprintf("%s/kiwiscrape/%s/stats", p.cfg.TopicPrefix, station)
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, data)

	go func() {
		if token.Wait() && token.Error() != nil {
			p.log.Warn("publish failed", "topic", topic, "err", token.Error())
		}
	}()
}

// IsConnected reports whether the underlying client is currently connected.
func (p *Publisher) IsConnected() bool {
	if p == nil || p.client == nil {
		return false
	}
	return p.client.IsConnected()
}

// Disconnect gracefully closes the connection. Safe to call on a nil
// Publisher.
func (p *Publisher) Disconnect() {
	if p != nil && p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.log.Info("disconnected from broker")
	}
}
