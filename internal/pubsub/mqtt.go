package pubsub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttConn is the part of mqtt.Client the bridge needs
type mqttConn interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTOptions configures the MQTT upstream
type MQTTOptions struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// MQTTPubSub mirrors events onto an MQTT broker. Each event goes to
// <prefix>/<event type>; everything under <prefix>/# is fanned out locally.
type MQTTPubSub struct {
	client mqttConn
	prefix string
	qos    byte
	fanout
}

// NewMQTTPubSub connects to the broker and subscribes to the topic prefix
func NewMQTTPubSub(opts MQTTOptions) (*MQTTPubSub, error) {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(60 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("MQTT connection lost", "broker", opts.Broker, "error", err)
		})

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", opts.Broker, err)
	}

	p, err := newMQTTPubSub(client, opts.TopicPrefix, opts.QoS)
	if err != nil {
		client.Disconnect(250)
		return nil, err
	}

	logger.Info("Connected to MQTT broker", "broker", opts.Broker, "prefix", opts.TopicPrefix)
	return p, nil
}

func newMQTTPubSub(client mqttConn, prefix string, qos byte) (*MQTTPubSub, error) {
	p := &MQTTPubSub{
		client: client,
		prefix: prefix,
		qos:    qos,
		fanout: fanout{name: "MQTT"},
	}

	token := client.Subscribe(p.filter(), qos, p.deliver)
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", p.filter(), err)
	}
	return p, nil
}

func (p *MQTTPubSub) filter() string {
	return p.prefix + "/#"
}

// Topic returns the topic an event type is published to
func (p *MQTTPubSub) Topic(eventType string) string {
	return p.prefix + "/" + eventType
}

func (p *MQTTPubSub) deliver(_ mqtt.Client, msg mqtt.Message) {
	var event Event
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		logger.Error("Failed to unmarshal event from MQTT", "topic", msg.Topic(), "error", err)
		return
	}
	p.broadcast(event)
}

// Publish sends the event as JSON to its type topic
func (p *MQTTPubSub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}

	topic := p.Topic(event.Type)
	token := p.client.Publish(topic, p.qos, false, data)
	token.Wait()
	if err := token.Error(); err != nil {
		logger.Error("Failed to publish to MQTT", "error", err, "topic", topic)
		return
	}

	logger.Debug("Published event to MQTT", "event_type", event.Type, "topic", topic)
}

// Subscribe creates a subscription channel for events
func (p *MQTTPubSub) Subscribe() chan Event {
	return p.add()
}

// Unsubscribe removes a subscription channel
func (p *MQTTPubSub) Unsubscribe(ch chan Event) {
	p.remove(ch)
}

// GetSubscriberCount returns the number of active local subscribers
func (p *MQTTPubSub) GetSubscriberCount() int {
	return p.count()
}

// Close drops the broker subscription and disconnects
func (p *MQTTPubSub) Close() {
	token := p.client.Unsubscribe(p.filter())
	if token.WaitTimeout(time.Second) && token.Error() != nil {
		logger.Warn("Failed to unsubscribe from MQTT", "error", token.Error())
	}
	p.client.Disconnect(250)
	p.closeAll()
}
