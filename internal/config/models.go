package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

const currentVersion = 1

// Config represents the entire user configuration file.
// It holds network preferences and user metadata for nodes, never WiFi
// passwords.
type Config struct {
	Version int                  `yaml:"version"`
	Network *NetworkPrefs        `yaml:"network,omitempty"`
	MDNS    *MDNSPrefs           `yaml:"mdns,omitempty"`
	MQTT    *MQTTPrefs           `yaml:"mqtt,omitempty"`
	Nodes   map[string]*NodeMeta `yaml:"nodes,omitempty"` // Keyed by node IP address
}

// NetworkPrefs selects the discovery socket and search targets.
type NetworkPrefs struct {
	Interface      string        `yaml:"interface,omitempty"`       // Interface to bind, e.g. "wlan0"
	BindAddress    string        `yaml:"bind_address,omitempty"`    // Local address, "" or "any" for all
	Port           int           `yaml:"port"`                      // 6454 (Art-Net) or 5568 (sACN)
	Target         string        `yaml:"target"`                    // Primary search target
	ExtraTargets   []string      `yaml:"extra_targets,omitempty"`   // Queried after the fallback list
	QueryInterval  time.Duration `yaml:"query_interval"`            // Wait after each search query
	MulticastGroup string        `yaml:"multicast_group,omitempty"` // Last fallback target
}

// MDNSPrefs controls the mDNS sweep that adds hosts to the search.
type MDNSPrefs struct {
	Enabled bool `yaml:"enabled"`
	Timeout int  `yaml:"timeout"` // Browse time in seconds
}

// MQTTPrefs configures the registry bridge used by watch --mqtt.
type MQTTPrefs struct {
	Broker      string `yaml:"broker,omitempty"` // e.g. "tcp://localhost:1883"
	ClientID    string `yaml:"client_id,omitempty"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username,omitempty"`
	// Password is NEVER stored in config file; it is read from ESPDMX_MQTT_PASSWORD
}

// NodeMeta is user metadata for a node seen on the network.
type NodeMeta struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastName string    `yaml:"last_name,omitempty"` // Node name the node last reported
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery time
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	c := &Config{Version: currentVersion}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Network == nil {
		c.Network = &NetworkPrefs{}
	}
	if c.Network.Port == 0 {
		c.Network.Port = 6454
	}
	if c.Network.Target == "" {
		c.Network.Target = "10.110.115.10"
	}
	if c.Network.QueryInterval == 0 {
		c.Network.QueryInterval = time.Second
	}
	if c.MDNS == nil {
		c.MDNS = &MDNSPrefs{Enabled: false, Timeout: 3}
	}
	if c.MQTT == nil {
		c.MQTT = &MQTTPrefs{}
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "espdmx"
	}
	if c.Nodes == nil {
		c.Nodes = make(map[string]*NodeMeta)
	}
}

// Validate checks preference values.
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, currentVersion)
	}

	n := c.Network
	if n.Port < 1 || n.Port > 65535 {
		return fmt.Errorf("network.port must be 1-65535, got %d", n.Port)
	}
	if n.QueryInterval < 0 {
		return fmt.Errorf("network.query_interval must not be negative, got %s", n.QueryInterval)
	}
	if n.MulticastGroup != "" {
		addr, err := netip.ParseAddr(n.MulticastGroup)
		if err != nil || !addr.Is4() || !addr.IsMulticast() {
			return fmt.Errorf("network.multicast_group must be an IPv4 multicast address, got %q", n.MulticastGroup)
		}
	}

	if c.MDNS.Timeout < 0 {
		return fmt.Errorf("mdns.timeout must not be negative, got %d", c.MDNS.Timeout)
	}

	if strings.ContainsAny(c.MQTT.TopicPrefix, "#+") {
		return fmt.Errorf("mqtt.topic_prefix must not contain wildcards, got %q", c.MQTT.TopicPrefix)
	}
	return nil
}

// GetNode retrieves node metadata by address.
// Returns nil if the node doesn't exist in the config.
func (c *Config) GetNode(addr string) *NodeMeta {
	return c.Nodes[addr]
}

// EnsureNode ensures a node entry exists and returns it.
func (c *Config) EnsureNode(addr string) *NodeMeta {
	if c.Nodes == nil {
		c.Nodes = make(map[string]*NodeMeta)
	}
	if node, exists := c.Nodes[addr]; exists {
		return node
	}
	node := &NodeMeta{}
	c.Nodes[addr] = node
	return node
}

// UpdateNodeLastSeen records that a node answered with the given name.
func (c *Config) UpdateNodeLastSeen(addr, name string) {
	node := c.EnsureNode(addr)
	node.LastSeen = time.Now()
	node.LastName = name
}

// SetNodeNickname sets a user-friendly nickname for a node.
func (c *Config) SetNodeNickname(addr, nickname string) {
	c.EnsureNode(addr).Nickname = nickname
}

// DisplayName returns the nickname for addr, falling back to name.
func (c *Config) DisplayName(addr, name string) string {
	if node := c.Nodes[addr]; node != nil && node.Nickname != "" {
		return node.Nickname
	}
	return name
}
