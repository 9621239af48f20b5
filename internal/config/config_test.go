package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "espdmx") {
		t.Errorf("GetConfigDir() = %v, should contain 'espdmx'", configDir)
	}

	switch runtime.GOOS {
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDirXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honoured on Linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if got != filepath.Join(dir, "espdmx") {
		t.Errorf("GetConfigDir() = %v, want %v", got, filepath.Join(dir, "espdmx"))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %v, want 1", cfg.Version)
	}
	if cfg.Network.Port != 6454 {
		t.Errorf("Network.Port = %v, want 6454", cfg.Network.Port)
	}
	if cfg.Network.Target != "10.110.115.10" {
		t.Errorf("Network.Target = %v", cfg.Network.Target)
	}
	if cfg.Network.QueryInterval != time.Second {
		t.Errorf("Network.QueryInterval = %v, want 1s", cfg.Network.QueryInterval)
	}
	if cfg.MQTT.TopicPrefix != "espdmx" {
		t.Errorf("MQTT.TopicPrefix = %v", cfg.MQTT.TopicPrefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		verify  func(t *testing.T, cfg *Config)
	}{
		{
			name: "full file",
			yaml: `version: 1
network:
  interface: wlan0
  port: 5568
  target: 192.168.1.255
  extra_targets: [10.0.0.20]
  query_interval: 500ms
  multicast_group: 239.255.0.7
mdns:
  enabled: true
  timeout: 5
mqtt:
  broker: tcp://localhost:1883
  topic_prefix: lights
nodes:
  10.110.115.10:
    nickname: Stage Left
`,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Network.Interface != "wlan0" || cfg.Network.Port != 5568 {
					t.Errorf("Network = %+v", cfg.Network)
				}
				if cfg.Network.QueryInterval != 500*time.Millisecond {
					t.Errorf("QueryInterval = %v", cfg.Network.QueryInterval)
				}
				if len(cfg.Network.ExtraTargets) != 1 || cfg.Network.ExtraTargets[0] != "10.0.0.20" {
					t.Errorf("ExtraTargets = %v", cfg.Network.ExtraTargets)
				}
				if !cfg.MDNS.Enabled || cfg.MDNS.Timeout != 5 {
					t.Errorf("MDNS = %+v", cfg.MDNS)
				}
				if cfg.MQTT.Broker != "tcp://localhost:1883" || cfg.MQTT.TopicPrefix != "lights" {
					t.Errorf("MQTT = %+v", cfg.MQTT)
				}
				if got := cfg.DisplayName("10.110.115.10", "esp"); got != "Stage Left" {
					t.Errorf("DisplayName() = %q", got)
				}
			},
		},
		{
			name: "partial file gets defaults",
			yaml: "network:\n  interface: eth0\n",
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Version != 1 || cfg.Network.Port != 6454 || cfg.MQTT.TopicPrefix != "espdmx" {
					t.Errorf("defaults not applied: %+v %+v", cfg.Network, cfg.MQTT)
				}
			},
		},
		{name: "unsupported version", yaml: "version: 2\n", wantErr: true},
		{name: "bad port", yaml: "network:\n  port: 70000\n", wantErr: true},
		{name: "unicast multicast group", yaml: "network:\n  multicast_group: 10.0.0.1\n", wantErr: true},
		{name: "wildcard topic prefix", yaml: "mqtt:\n  topic_prefix: a/#\n", wantErr: true},
		{name: "invalid yaml", yaml: "network: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.verify != nil {
				tt.verify(t, cfg)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Network.Interface = "wlan0"
	cfg.Network.QueryInterval = 2 * time.Second
	cfg.SetNodeNickname("10.110.115.10", "Stage Left")
	cfg.UpdateNodeLastSeen("10.110.115.10", "esp-dmx-1")

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# ESP-DMX configuration tool settings") {
		t.Error("Saved file should start with the header comment")
	}
	if !strings.Contains(string(data), "query_interval: 2s") {
		t.Errorf("durations should be written as text:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Network.Interface != "wlan0" || loaded.Network.QueryInterval != 2*time.Second {
		t.Errorf("Network = %+v", loaded.Network)
	}
	node := loaded.GetNode("10.110.115.10")
	if node == nil || node.Nickname != "Stage Left" || node.LastName != "esp-dmx-1" {
		t.Errorf("node = %+v", node)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Network.Port != 6454 {
		t.Errorf("expected defaults, got %+v", cfg.Network)
	}
}

func TestEnsureNode(t *testing.T) {
	cfg := &Config{}

	n1 := cfg.EnsureNode("10.0.0.1")
	if n1 == nil {
		t.Fatal("EnsureNode() returned nil")
	}
	if cfg.EnsureNode("10.0.0.1") != n1 {
		t.Error("EnsureNode() should return same instance for same address")
	}
	if cfg.EnsureNode("10.0.0.2") == n1 {
		t.Error("EnsureNode() should create new instance for different address")
	}
	if got := cfg.DisplayName("10.0.0.3", "fallback"); got != "fallback" {
		t.Errorf("DisplayName() = %q, want fallback", got)
	}
}
