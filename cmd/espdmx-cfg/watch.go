package main

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/mqtt"
	"github.com/lxdmxwifi/espdmx/internal/ui"
)

var (
	watchMQTT bool
	watchMDNS bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show discovered nodes in a live table",
	Long: `Search for nodes and keep listening for replies, showing every node in a
live table. Press r to search again and enter to show the selected node.

With --mqtt every node is also published as retained JSON on
<prefix>/nodes/<ip> at the broker configured in the mqtt section of the
config file. The broker password is read from ESPDMX_MQTT_PASSWORD.`,
	Example: `  espdmx-cfg watch
  espdmx-cfg watch --sacn --mdns
  espdmx-cfg watch --mqtt`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchMQTT, "mqtt", false, "Publish nodes to the configured MQTT broker")
	watchCmd.Flags().BoolVar(&watchMDNS, "mdns", false, "Also query hosts found by mDNS")
}

// programSender forwards engine and registry notifications to a program
// once it exists.
type programSender struct {
	p atomic.Pointer[tea.Program]
}

func (s *programSender) send(msg tea.Msg) {
	if p := s.p.Load(); p != nil {
		p.Send(msg)
	}
}

func (s *programSender) listener() discovery.Listener {
	return discovery.ListenerFuncs{
		OnSearchProgress: func(text string) { s.send(ui.SearchProgressMsg(text)) },
		OnSendFailed:     func(err error) { s.send(ui.SendFailedMsg{Err: err}) },
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sender := &programSender{}

	s, err := openSession(ctx, sender.listener())
	if err != nil {
		return err
	}
	defer s.Close()

	unsub := s.registry.Subscribe(func(discovery.RegistryEvent) {
		sender.send(ui.RegistryChangedMsg{Records: s.registry.List()})
	})
	defer unsub()

	if watchMQTT {
		bridge, err := mqtt.NewBridge(s.registry, mqtt.ConfigFromPrefs(cfg.MQTT))
		if err != nil {
			return fmt.Errorf("mqtt bridge: %w", err)
		}
		bridge.Start()
		defer bridge.Stop()
	}

	var mdnsOnce sync.Once
	model := ui.NewWatchModel(func() tea.Cmd {
		return func() tea.Msg {
			if watchMDNS || cfg.MDNS.Enabled {
				mdnsOnce.Do(func() {
					sender.send(ui.SearchProgressMsg("browsing mDNS"))
					s.addMDNSTargets(ctx, time.Duration(cfg.MDNS.Timeout)*time.Second)
				})
			}
			return ui.SearchDoneMsg{Err: s.client.Search(ctx, cfg.Network.Target, s.port)}
		}
	})
	model.DisplayName = cfg.DisplayName

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	sender.p.Store(p)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("watch error: %w", err)
	}

	rememberNodes(s.registry)
	return nil
}
