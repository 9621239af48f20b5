package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/logging"
	"github.com/lxdmxwifi/espdmx/internal/nodeconfig"
)

// NodeState is the retained payload published for each node.
type NodeState struct {
	Address    string            `json:"address"`
	Name       string            `json:"name"`
	Addressing string            `json:"addressing"`
	LastSeen   string            `json:"last_seen"`
	Config     nodeconfig.Fields `json:"config"`
}

// NewNodeState builds the payload for rec. The WiFi password is never
// included.
func NewNodeState(rec *discovery.Record) NodeState {
	return NodeState{
		Address:    rec.Address(),
		Name:       rec.NodeName(),
		Addressing: nodeconfig.FormatAddressing(rec.Packet),
		LastSeen:   rec.ReceivedAt.UTC().Format(time.RFC3339),
		Config:     nodeconfig.FieldsFromPacket(rec.Packet),
	}
}

// Bridge mirrors the discovery registry to MQTT. Each node is published as
// retained JSON on its own topic whenever it replies.
type Bridge struct {
	client pahomqtt.Client
	reg    *discovery.Registry
	prefix string
	log    *zap.Logger

	mu    sync.Mutex
	unsub func()
}

// NewBridge connects to the broker. The bridge does nothing until Start.
func NewBridge(reg *discovery.Registry, cfg Config) (*Bridge, error) {
	opts, err := buildClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	b := newBridge(reg, cfg.TopicPrefix, nil)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		b.log.Info("MQTT connected")
		b.publishState(stateOnline)
		b.publishAll()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		b.log.Warn("MQTT connection lost", zap.Error(err))
	})

	b.client = pahomqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w after %v", ErrConnectTimeout, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

func newBridge(reg *discovery.Registry, prefix string, client pahomqtt.Client) *Bridge {
	return &Bridge{
		client: client,
		reg:    reg,
		prefix: normalisePrefix(prefix),
		log:    logging.Named("mqtt"),
	}
}

// Prefix returns the topic prefix in use.
func (b *Bridge) Prefix() string {
	return b.prefix
}

// Start subscribes to registry changes and publishes the nodes already
// known. Calling Start twice has no effect.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsub != nil {
		return
	}
	b.unsub = b.reg.Subscribe(b.handleEvent)
	b.publishAll()
	b.log.Info("MQTT bridge started", zap.String("prefix", b.prefix))
}

// Stop publishes the offline state, unsubscribes and disconnects.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.unsub != nil {
		b.unsub()
		b.unsub = nil
	}
	b.mu.Unlock()

	if b.client.IsConnected() {
		token := b.client.Publish(StateTopic(b.prefix), publishQoS, true, stateOffline)
		token.WaitTimeout(defaultPublishTimeout)
	}
	b.client.Disconnect(disconnectQuiesce)
	b.log.Info("MQTT bridge stopped")
}

// handleEvent runs on the engine goroutine, so publishing must not wait.
func (b *Bridge) handleEvent(ev discovery.RegistryEvent) {
	switch ev.Type {
	case discovery.RecordAdded, discovery.RecordReplaced:
		b.publishNode(ev.Record)
	case discovery.RegistryCleared:
		// Retained node state stays until the node replies again.
	}
}

func (b *Bridge) publishAll() {
	for _, rec := range b.reg.List() {
		b.publishNode(rec)
	}
}

func (b *Bridge) publishNode(rec *discovery.Record) {
	if rec == nil || rec.Packet == nil {
		return
	}
	payload, err := json.Marshal(NewNodeState(rec))
	if err != nil {
		b.log.Warn("Cannot encode node state", zap.String("addr", rec.Address()), zap.Error(err))
		return
	}
	b.publish(NodeTopic(b.prefix, rec.Address()), payload)
}

func (b *Bridge) publishState(state string) {
	b.publish(StateTopic(b.prefix), []byte(state))
}

func (b *Bridge) publish(topic string, payload []byte) {
	token := b.client.Publish(topic, publishQoS, true, payload)
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			b.log.Warn("MQTT publish timeout", zap.String("topic", topic))
		} else if err := token.Error(); err != nil {
			b.log.Warn("MQTT publish error", zap.String("topic", topic), zap.Error(err))
		}
	}()
}
