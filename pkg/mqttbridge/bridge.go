// Package mqttbridge mirrors wall panel state to an MQTT broker and
// accepts service calls on command topics.
package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"wallpanel/pkg/wallpanel"
)

const (
	allDevices     = "all"
	publishTimeout = 5 * time.Second
)

type Config struct {
	Broker    string
	ClientID  string
	Username  string
	Password  string
	TopicRoot string
	QoS       byte
}

// Client is the part of mqtt.Client the bridge uses.
type Client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Bridge publishes snapshots and routes command topics. The command
// subscription and the online status are renewed on every connect, since
// a clean-session reconnect drops both.
type Bridge struct {
	cfg    Config
	router *wallpanel.Router
	root   string
	logger log.FieldLogger

	mu     sync.RWMutex
	client Client

	ctx    context.Context
	cancel context.CancelFunc
}

func New(router *wallpanel.Router, cfg Config, logger log.FieldLogger) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		cfg:    cfg,
		router: router,
		root:   strings.TrimSuffix(cfg.TopicRoot, "/"),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func statusTopic(root string) string { return strings.TrimSuffix(root, "/") + "/status" }

func (b *Bridge) stateTopic(id string) string { return b.root + "/" + id + "/state" }

func (b *Bridge) commandTopic() string { return b.root + "/+/set/+" }

// Connect opens the client on cfg.Broker. The broker marks the bridge
// offline through the last will if the connection drops.
func (b *Bridge) Connect() (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.SetClientID(b.cfg.ClientID)
	opts.AddBroker(b.cfg.Broker)
	opts.SetUsername(b.cfg.Username)
	opts.SetPassword(b.cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.SetWill(statusTopic(b.root), "offline", b.cfg.QoS, true)
	opts.SetOnConnectHandler(func(c mqtt.Client) { b.onConnect(c) })
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.logger.Warnf("Connection to MQTT broker lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	b.setClient(client)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

func (b *Bridge) setClient(c Client) {
	b.mu.Lock()
	b.client = c
	b.mu.Unlock()
}

func (b *Bridge) getClient() Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.client
}

// onConnect runs after the first connect and after every reconnect.
func (b *Bridge) onConnect(client Client) {
	topic := b.commandTopic()
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		b.handleMessage(b.ctx, msg)
	}
	if token := client.Subscribe(topic, b.cfg.QoS, handler); token.Wait() && token.Error() != nil {
		b.logger.Errorf("Failed to subscribe to %s: %v", topic, token.Error())
		return
	}
	b.logger.Infof("Listening for service calls on %s", topic)
	b.publish(client, statusTopic(b.root), true, "online")
}

// Run blocks until ctx is cancelled, then marks the bridge offline and
// drops the command subscription.
func (b *Bridge) Run(ctx context.Context) {
	<-ctx.Done()
	defer b.cancel()

	client := b.getClient()
	if client == nil {
		return
	}
	b.publish(client, statusTopic(b.root), true, "offline")
	if client.IsConnected() {
		if token := client.Unsubscribe(b.commandTopic()); token.WaitTimeout(publishTimeout) && token.Error() != nil {
			b.logger.Warnf("Failed to unsubscribe from %s: %v", b.commandTopic(), token.Error())
		}
	}
}

// OnSnapshot publishes s as the retained state of its device.
func (b *Bridge) OnSnapshot(s wallpanel.Snapshot) {
	client := b.getClient()
	if client == nil {
		return
	}

	payload, err := json.Marshal(s)
	if err != nil {
		b.logger.Errorf("Failed to encode snapshot of %s: %v", s.ID, err)
		return
	}
	b.publish(client, b.stateTopic(s.ID), true, payload)
}

func (b *Bridge) publish(client Client, topic string, retained bool, payload any) {
	if !client.IsConnected() {
		b.logger.Debugf("Not connected, dropping message for %s", topic)
		return
	}

	token := client.Publish(topic, b.cfg.QoS, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		b.logger.Warnf("Timed out publishing to %s", topic)
		return
	}
	if err := token.Error(); err != nil {
		b.logger.Warnf("Failed to publish to %s: %v", topic, err)
	}
}

// parseCommandTopic splits <root>/<target>/set/<action>.
func (b *Bridge) parseCommandTopic(topic string) (target, action string, ok bool) {
	rest, found := strings.CutPrefix(topic, b.root+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "set" || parts[0] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

func (b *Bridge) handleMessage(ctx context.Context, msg mqtt.Message) {
	msg.Ack()

	target, name, ok := b.parseCommandTopic(msg.Topic())
	if !ok {
		b.logger.Warnf("Ignoring message on unexpected topic %s", msg.Topic())
		return
	}

	action, err := wallpanel.ParseAction(name)
	if err != nil {
		b.logger.Warnf("Ignoring message on %s: %v", msg.Topic(), err)
		return
	}

	data, err := wallpanel.ParseServiceData(msg.Payload())
	if err != nil {
		b.logger.Warnf("Ignoring message on %s: %v", msg.Topic(), err)
		return
	}

	// The topic decides the target; ids in the payload are ignored.
	data.EntityID = nil
	if target != allDevices {
		data.EntityID = wallpanel.EntityIDs{strings.ToLower(target)}
	}

	results, err := b.router.Route(ctx, data.Call(action))
	if err != nil {
		b.logger.Warnf("Service call %s on %s failed: %v", action, target, err)
		return
	}
	if len(results) == 0 {
		b.logger.Warnf("Service call %s matched no device for %s", action, target)
	}
	for _, res := range results {
		if res.Err() != nil {
			b.logger.Warnf("Service call %s on %s failed: %v", action, res.DeviceID, res.Err())
		}
	}
}
