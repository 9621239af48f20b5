// Espdmx-cfg finds and configures ESP-DMX WiFi lighting nodes.
//
// It queries nodes over UDP on the Art-Net (6454) or sACN (5568) port,
// shows their reported configuration, uploads new settings and sends
// ArtAddress commands.
//
// Usage:
//
//	espdmx-cfg [command] [flags]
//
// Running without arguments scans the network.
// See 'espdmx-cfg --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lxdmxwifi/espdmx/internal/config"
	"github.com/lxdmxwifi/espdmx/internal/logging"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
	"github.com/lxdmxwifi/espdmx/internal/version"
)

// Global flags
var (
	configPath  string
	ifaceName   string
	bindAddress string
	targetAddr  string
	portFlag    int
	useSACN     bool
	logLevel    string
)

// cfg is loaded before any command runs
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			for _, line := range hintLines(err) {
				fmt.Fprintf(os.Stderr, "  - %s\n", line)
			}
		}
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "espdmx-cfg",
	Short: "ESP-DMX Node Configuration Utility",
	Long: `A utility for discovering and configuring ESP-DMX WiFi lighting nodes.

Nodes answer configuration queries on the Art-Net port (6454) or the sACN
port (5568). A node in access point mode is reached at 10.110.115.10 after
joining its WiFi network.

If no command is specified, the network is scanned.`,
	Version:           version.Full(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/espdmx/config.yaml)")
	pf.StringVar(&ifaceName, "interface", "", "Network interface to bind, e.g. wlan0")
	pf.StringVar(&bindAddress, "bind", "", "Local address to bind (default: all addresses)")
	pf.StringVar(&targetAddr, "target", "", "Primary search target (default: 10.110.115.10)")
	pf.IntVar(&portFlag, "port", protocol.PortArtNet, "UDP port of the node")
	pf.BoolVar(&useSACN, "sacn", false, "Use the sACN port (5568) instead of Art-Net")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default from ESPDMX_LOG_LEVEL")

	rootCmd.AddCommand(versionCmd)
}

// loadSettings initialises logging and merges the config file with flags.
func loadSettings(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, c)
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

// applyFlagOverrides copies explicitly set global flags into c.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("interface") {
		c.Network.Interface = ifaceName
	}
	if flags.Changed("bind") {
		c.Network.BindAddress = bindAddress
	}
	if flags.Changed("target") {
		c.Network.Target = targetAddr
	}
	if flags.Changed("port") {
		c.Network.Port = portFlag
	}
	if useSACN {
		c.Network.Port = protocol.PortSACN
	}
}

// shownError marks an error already rendered in a result box.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		for _, line := range version.Details() {
			fmt.Println(line)
		}
	},
}
