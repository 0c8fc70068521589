// Package mqtt mirrors fan state to an MQTT broker and accepts commands
// from it.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/fan"
)

// Controller is the part of the platform the bridge drives.
type Controller interface {
	Subscribe(fn func(fan.Snapshot)) func()
	Snapshots() []fan.Snapshot
	TurnOn(ctx context.Context, id string, preset *fan.Speed) (fan.Snapshot, error)
	TurnOff(ctx context.Context, id string) (fan.Snapshot, error)
	SetPresetMode(ctx context.Context, id string, preset fan.Speed) (fan.Snapshot, error)
}

type publishFunc func(topic string, payload []byte, retained bool) error

// Bridge publishes every snapshot and routes set commands to the controller.
type Bridge struct {
	client  pahomqtt.Client
	topics  Topics
	qos     byte
	ctrl    Controller
	log     *zap.Logger
	publish publishFunc

	mu          sync.Mutex
	unsubscribe func()
}

func newBridge(ctrl Controller, topics Topics, qos byte, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{ctrl: ctrl, topics: topics, qos: qos, log: log}
}

// Connect dials the broker, subscribes to the command topics and starts
// mirroring the controller's snapshots.
func Connect(cfg Config, ctrl Controller, log *zap.Logger) (*Bridge, error) {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "ecofan"
	}
	b := newBridge(ctrl, Topics{Prefix: cfg.TopicPrefix}, cfg.QoS, log)

	opts := buildClientOptions(cfg, b.topics)
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		b.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		b.log.Warn("MQTT connection lost", zap.Error(err))
	})

	b.client = pahomqtt.NewClient(opts)
	b.publish = b.pahoPublish

	token := b.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	b.start()
	b.log.Info("MQTT bridge connected", zap.String("broker", cfg.Broker), zap.String("prefix", cfg.TopicPrefix))
	return b, nil
}

// handleConnect runs on the first connect and every reconnect.
func (b *Bridge) handleConnect() {
	token := b.client.Subscribe(b.topics.SetAll(), b.qos, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.onMessage(msg.Topic(), msg.Payload())
	})
	if token.WaitTimeout(defaultPublishTimeout) && token.Error() != nil {
		b.log.Error("MQTT subscribe failed", zap.Error(fmt.Errorf("%w: %w", ErrSubscribeFailed, token.Error())))
	}

	if err := b.publish(b.topics.BridgeStatus(), []byte(payloadOnline), true); err != nil {
		b.log.Warn("Unable to publish bridge status", zap.Error(err))
	}
	b.publishAll()
}

// start subscribes to controller snapshots.
func (b *Bridge) start() {
	unsubscribe := b.ctrl.Subscribe(b.PublishSnapshot)
	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()
}

func (b *Bridge) publishAll() {
	for _, s := range b.ctrl.Snapshots() {
		b.PublishSnapshot(s)
	}
}

// PublishSnapshot publishes retained state and availability for one fan.
func (b *Bridge) PublishSnapshot(s fan.Snapshot) {
	payload, err := encodeState(s)
	if err != nil {
		b.log.Error("Unable to encode state", zap.String("entry_id", s.ID), zap.Error(err))
		return
	}
	if err := b.publish(b.topics.State(s.ID), payload, true); err != nil {
		b.log.Debug("State not published", zap.String("entry_id", s.ID), zap.Error(err))
		return
	}
	if err := b.publish(b.topics.Availability(s.ID), availabilityPayload(s.Available), true); err != nil {
		b.log.Debug("Availability not published", zap.String("entry_id", s.ID), zap.Error(err))
	}
}

func (b *Bridge) onMessage(topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("MQTT handler panic recovered", zap.String("topic", topic), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultCommandTimeout)
	defer cancel()

	if err := b.HandleCommand(ctx, topic, payload); err != nil {
		b.log.Warn("MQTT command rejected", zap.String("topic", topic), zap.Error(err))
	}
}

// HandleCommand applies one set payload received on topic.
func (b *Bridge) HandleCommand(ctx context.Context, topic string, payload []byte) error {
	id, ok := b.topics.EntityFromSet(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	cmd, err := ParseCommand(payload)
	if err != nil {
		return err
	}

	b.log.Debug("MQTT command", zap.String("entry_id", id), zap.ByteString("payload", payload))

	switch {
	case cmd.Power != nil && *cmd.Power:
		_, err = b.ctrl.TurnOn(ctx, id, cmd.Preset)
	case cmd.Power != nil:
		_, err = b.ctrl.TurnOff(ctx, id)
		if err == nil && cmd.Preset != nil {
			_, err = b.ctrl.SetPresetMode(ctx, id, *cmd.Preset)
		}
	default:
		_, err = b.ctrl.SetPresetMode(ctx, id, *cmd.Preset)
	}
	return err
}

func (b *Bridge) pahoPublish(topic string, payload []byte, retained bool) error {
	if !b.client.IsConnected() {
		return ErrNotConnected
	}
	token := b.client.Publish(topic, b.qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close publishes a graceful offline status and disconnects.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.mu.Unlock()

	if b.client == nil {
		return nil
	}
	if err := b.publish(b.topics.BridgeStatus(), []byte(payloadOffline), true); err != nil && !errors.Is(err, ErrNotConnected) {
		b.log.Warn("Unable to publish offline status", zap.Error(err))
	}
	b.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}
