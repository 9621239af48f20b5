package mqtt

import (
	"encoding/json"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  string
}

// fakeClient implements the parts of pahomqtt.Client the bridge uses.
type fakeClient struct {
	pahomqtt.Client

	mu           sync.Mutex
	messages     []published
	connected    bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var text string
	switch p := payload.(type) {
	case string:
		text = p
	case []byte:
		text = string(p)
	}
	c.messages = append(c.messages, published{topic: topic, retained: retained, payload: text})
	return &fakeToken{}
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	c.connected = false
}

func (c *fakeClient) sent() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]published, len(c.messages))
	copy(out, c.messages)
	return out
}

func testRecord(t *testing.T, addr, name string) *discovery.Record {
	t.Helper()
	pkt := protocol.DefaultConfig()
	pkt.NodeName = name
	pkt.Password = "secret-password"
	return discovery.NewRecord(pkt, netip.MustParseAddrPort(addr+":6454"))
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		state  string
		node   string
	}{
		{"default prefix", "", "espdmx/bridge/state", "espdmx/nodes/10.0.0.5"},
		{"custom prefix", "home/lighting", "home/lighting/bridge/state", "home/lighting/nodes/10.0.0.5"},
		{"trailing slash", "dmx/", "dmx/bridge/state", "dmx/nodes/10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateTopic(tt.prefix); got != tt.state {
				t.Errorf("StateTopic(%q) = %q, want %q", tt.prefix, got, tt.state)
			}
			if got := NodeTopic(tt.prefix, "10.0.0.5"); got != tt.node {
				t.Errorf("NodeTopic(%q) = %q, want %q", tt.prefix, got, tt.node)
			}
		})
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		name    string
		broker  string
		want    string
		wantErr bool
	}{
		{"bare host", "localhost", "tcp://localhost:1883", false},
		{"host and port", "broker.lan:2883", "tcp://broker.lan:2883", false},
		{"tcp without port", "tcp://10.0.0.2", "tcp://10.0.0.2:1883", false},
		{"ssl without port", "ssl://broker.lan", "ssl://broker.lan:8883", false},
		{"full url", "tcp://broker.lan:1883", "tcp://broker.lan:1883", false},
		{"empty", "", "", true},
		{"missing host", "tcp://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BrokerURL(tt.broker)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BrokerURL(%q) error = %v, wantErr %v", tt.broker, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BrokerURL(%q) = %q, want %q", tt.broker, got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	opts, err := buildClientOptions(Config{
		Broker:      "broker.lan",
		TopicPrefix: "dmx",
		Username:    "lights",
		Password:    "pw",
	})
	if err != nil {
		t.Fatalf("buildClientOptions() error = %v", err)
	}

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://broker.lan:1883" {
		t.Errorf("Servers = %v, want [tcp://broker.lan:1883]", opts.Servers)
	}
	if opts.ClientID != defaultClientID {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, defaultClientID)
	}
	if !opts.WillEnabled || opts.WillTopic != "dmx/bridge/state" || string(opts.WillPayload) != "offline" || !opts.WillRetained {
		t.Errorf("will = %v %q %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillPayload, opts.WillRetained)
	}
	if opts.Username != "lights" || opts.Password != "pw" {
		t.Errorf("credentials = %q/%q, want lights/pw", opts.Username, opts.Password)
	}

	if _, err := buildClientOptions(Config{}); err != ErrNoBroker {
		t.Errorf("buildClientOptions(empty) error = %v, want ErrNoBroker", err)
	}
}

func TestConfigFromPrefsReadsPasswordFromEnv(t *testing.T) {
	t.Setenv(PasswordEnv, "from-env")
	cfg := ConfigFromPrefs(nil)
	if cfg.Password != "from-env" {
		t.Errorf("Password = %q, want from-env", cfg.Password)
	}
}

func TestBridgePublishesRegistryChanges(t *testing.T) {
	reg := discovery.NewRegistry()
	reg.Add(testRecord(t, "10.0.0.5", "stage-left"))

	client := &fakeClient{connected: true}
	b := newBridge(reg, "dmx", client)
	b.Start()
	b.Start()

	reg.Add(testRecord(t, "10.0.0.6", "stage-right"))
	reg.Add(testRecord(t, "10.0.0.5", "stage-left-2"))
	reg.Reset()

	msgs := client.sent()
	wantTopics := []string{"dmx/nodes/10.0.0.5", "dmx/nodes/10.0.0.6", "dmx/nodes/10.0.0.5"}
	if len(msgs) != len(wantTopics) {
		t.Fatalf("published %d messages, want %d: %+v", len(msgs), len(wantTopics), msgs)
	}
	for i, want := range wantTopics {
		if msgs[i].topic != want {
			t.Errorf("message %d topic = %q, want %q", i, msgs[i].topic, want)
		}
		if !msgs[i].retained {
			t.Errorf("message %d not retained", i)
		}
		if strings.Contains(msgs[i].payload, "secret-password") {
			t.Errorf("message %d leaks the WiFi password", i)
		}
	}

	var state NodeState
	if err := json.Unmarshal([]byte(msgs[2].payload), &state); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if state.Address != "10.0.0.5" || state.Name != "stage-left-2" {
		t.Errorf("state = %+v, want 10.0.0.5 stage-left-2", state)
	}
	if state.Addressing != "Art-Net 0:0:0" {
		t.Errorf("Addressing = %q, want Art-Net 0:0:0", state.Addressing)
	}
}

func TestBridgeStop(t *testing.T) {
	reg := discovery.NewRegistry()
	client := &fakeClient{connected: true}
	b := newBridge(reg, "", client)
	b.Start()
	b.Stop()

	reg.Add(testRecord(t, "10.0.0.7", "after-stop"))

	msgs := client.sent()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1: %+v", len(msgs), msgs)
	}
	if msgs[0].topic != "espdmx/bridge/state" || msgs[0].payload != "offline" {
		t.Errorf("stop message = %+v, want offline on espdmx/bridge/state", msgs[0])
	}
	if !client.disconnected {
		t.Error("client not disconnected")
	}
}
