package mqtt

import (
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultCommandTimeout    = 15 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second
	maxReconnectInterval     = 2 * time.Minute
)

// Config configures the bridge's broker connection.
type Config struct {
	Broker      string // e.g. tcp://localhost:1883
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// buildClientOptions creates paho options from Config, including a retained
// "offline" will on the bridge status topic.
func buildClientOptions(cfg Config, topics Topics) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetOrderMatters(false)

	opts.SetWill(topics.BridgeStatus(), payloadOffline, cfg.QoS, true)

	return opts
}
