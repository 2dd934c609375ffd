package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pumpcontrol/internal/logger"
	"pumpcontrol/internal/service"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultTopic    = "pumpcontrol/ingest/#"
	defaultClientID = "pumpcontrol-backend"

	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // ms, paho's own unit
)

// Envelope is the message shape devices publish: a type discriminator and
// a free-form payload the adapters normalize.
type Envelope struct {
	DeviceID  string         `json:"device_id"`
	Timestamp int64          `json:"timestamp"`
	Type      string         `json:"type"` // telemetry | command
	Payload   map[string]any `json:"payload"`
}

type Config struct {
	Broker   string
	Topic    string
	ClientID string
}

// Ingestor subscribes to the device topic and routes messages into the
// same normalization paths the HTTP surfaces use. It makes no scheduling
// or actuation decisions of its own.
type Ingestor struct {
	cfg       Config
	telemetry service.Telemetry
	pump      service.Pump
	log       *logger.Logger

	client pahomqtt.Client
	ctx    context.Context
}

func NewIngestor(cfg Config, telemetry service.Telemetry, pump service.Pump, log *logger.Logger) *Ingestor {
	if cfg.Topic == "" {
		cfg.Topic = defaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = defaultClientID
	}
	return &Ingestor{cfg: cfg, telemetry: telemetry, pump: pump, log: log}
}

// Start connects and subscribes. Paho reconnects on its own after
// transient broker loss; subscription is re-established via the connect
// handler.
func (i *Ingestor) Start(ctx context.Context) error {
	i.ctx = ctx

	opts := pahomqtt.NewClientOptions().
		AddBroker(i.cfg.Broker).
		SetClientID(i.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			if token := c.Subscribe(i.cfg.Topic, 1, i.handleMessage); token.Wait() && token.Error() != nil {
				i.log.Errorw("mqtt_subscribe_failed", "err", token.Error(), "topic", i.cfg.Topic)
			}
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			i.log.Warnw("mqtt_connection_lost", "err", err)
		})

	i.client = pahomqtt.NewClient(opts)
	token := i.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to %s: timeout", i.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", i.cfg.Broker, err)
	}
	i.log.Infow("mqtt_ingestion_started", "broker", i.cfg.Broker, "topic", i.cfg.Topic)
	return nil
}

func (i *Ingestor) Stop() {
	if i.client != nil && i.client.IsConnected() {
		i.client.Disconnect(disconnectQuiesce)
	}
}

// handleMessage decodes one envelope and hands it to the matching service.
// Malformed messages are logged and dropped; they never fail the broker
// session.
func (i *Ingestor) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		i.log.Warnw("mqtt_bad_envelope", "err", err, "topic", msg.Topic())
		return
	}

	switch env.Type {
	case "telemetry":
		if _, err := i.telemetry.Ingest(i.ctx, env.Payload); err != nil {
			i.log.Warnw("mqtt_telemetry_rejected", "err", err, "device_id", env.DeviceID)
		}
	case "command":
		i.handleCommand(env)
	default:
		i.log.Warnw("mqtt_unknown_type", "type", env.Type, "device_id", env.DeviceID)
	}
}

func (i *Ingestor) handleCommand(env Envelope) {
	action, _ := env.Payload["action"].(string)
	switch action {
	case "start":
		if _, err := i.pump.Start(i.ctx); err != nil {
			i.log.Errorw("mqtt_pump_start_failed", "err", err, "device_id", env.DeviceID)
		}
	case "stop":
		if _, err := i.pump.Stop(i.ctx); err != nil {
			i.log.Errorw("mqtt_pump_stop_failed", "err", err, "device_id", env.DeviceID)
		}
	default:
		i.log.Warnw("mqtt_unknown_action", "action", action, "device_id", env.DeviceID)
	}
}
