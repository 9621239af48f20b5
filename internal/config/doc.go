// Package config provides user configuration management for espdmx-cfg.
//
// This package manages a YAML configuration file holding network
// preferences (interface, port, search targets), the optional mDNS sweep
// and MQTT bridge settings, and nicknames for nodes seen on the network.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/espdmx/config.yaml or $HOME/.config/espdmx/config.yaml
//   - macOS: $HOME/.config/espdmx/config.yaml
//   - Windows: %LOCALAPPDATA%\espdmx\config.yaml
//
// # Security
//
// IMPORTANT: This package NEVER stores WiFi passwords or broker
// credentials. Node passwords are typed at upload time.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.SetNodeNickname("10.110.115.10", "Stage Left")
//	if err := cfg.Save(""); err != nil {
//	    log.Fatal(err)
//	}
package config
