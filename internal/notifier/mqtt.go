package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"tiretrack/internal/config"
	"tiretrack/internal/models"
)

// MQTTNotifier 把新建报警发布到 MQTT 主题
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
	qos    byte
}

var _ Notifier = (*MQTTNotifier)(nil)

// NewMQTTNotifier 创建MQTT通知器并连接 broker
func NewMQTTNotifier(cfg *config.MQTTConfig) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTNotifier{
		client: client,
		topic:  cfg.Topic,
		qos:    cfg.QoS,
	}, nil
}

// AlertCreated 发布报警 JSON
func (n *MQTTNotifier) AlertCreated(ctx context.Context, alert *models.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	token := n.client.Publish(n.topic, n.qos, false, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish alert to topic %s: %w", n.topic, token.Error())
	}

	return nil
}

// Close 断开MQTT连接
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
