package mqtt

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lxdmxwifi/espdmx/internal/config"
)

const (
	// PasswordEnv holds the broker password. It is never read from the
	// config file.
	PasswordEnv = "ESPDMX_MQTT_PASSWORD"

	defaultClientID       = "espdmx-cfg"
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultKeepAlive      = 60 * time.Second
	disconnectQuiesce     = 1000 // milliseconds
	publishQoS            = 1

	stateOnline  = "online"
	stateOffline = "offline"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
}

// ConfigFromPrefs builds a bridge configuration from the user's preferences,
// taking the password from the environment.
func ConfigFromPrefs(p *config.MQTTPrefs) Config {
	if p == nil {
		p = &config.MQTTPrefs{}
	}
	return Config{
		Broker:      p.Broker,
		ClientID:    p.ClientID,
		TopicPrefix: p.TopicPrefix,
		Username:    p.Username,
		Password:    os.Getenv(PasswordEnv),
	}
}

// BrokerURL normalises a broker address. A bare host gets the tcp scheme,
// and a missing port gets the scheme's default.
func BrokerURL(broker string) (string, error) {
	broker = strings.TrimSpace(broker)
	if broker == "" {
		return "", ErrNoBroker
	}
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	u, err := url.Parse(broker)
	if err != nil {
		return "", fmt.Errorf("invalid broker %q: %w", broker, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid broker %q: missing host", broker)
	}

	if u.Port() == "" {
		switch u.Scheme {
		case "tcp", "mqtt":
			u.Host = net.JoinHostPort(u.Hostname(), "1883")
		case "ssl", "tls", "mqtts":
			u.Host = net.JoinHostPort(u.Hostname(), "8883")
		}
	}
	return u.String(), nil
}

// buildClientOptions creates paho options. The will marks the bridge
// offline if the connection drops without a clean Stop.
func buildClientOptions(cfg Config) (*pahomqtt.ClientOptions, error) {
	broker, err := BrokerURL(cfg.Broker)
	if err != nil {
		return nil, err
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive).
		SetWill(StateTopic(cfg.TopicPrefix), stateOffline, publishQoS, true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	return opts, nil
}
