package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/nodeconfig"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
	"github.com/lxdmxwifi/espdmx/internal/ui"
)

// Command flags
var (
	scanWait     time.Duration
	scanMDNS     bool
	outputFormat string
	queryTimeout time.Duration
	assumeYes    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(cancelMergeCmd)
	rootCmd.AddCommand(clearOutputCmd)
	rootCmd.AddCommand(defaultsCmd)
	rootCmd.AddCommand(nicknameCmd)
}

// cliListener prints engine notifications to w.
func cliListener(w io.Writer, progress bool) discovery.Listener {
	l := discovery.ListenerFuncs{
		OnSendFailed: func(err error) {
			_, _ = fmt.Fprintf(w, "%s %v\n", ui.WarningMarker, err)
		},
		OnBindDiagnostic: func(text string) {
			_, _ = fmt.Fprintln(w, text)
		},
	}
	if progress {
		l.OnSearchProgress = func(text string) {
			_, _ = fmt.Fprintf(w, "  %s\n", text)
		}
	}
	return l
}

// resolveTarget converts a target argument to the address replies come from.
func resolveTarget(ctx context.Context, target string) (netip.Addr, error) {
	ip, err := protocol.ResolveAddress(ctx, target)
	if err != nil {
		return netip.Addr{}, nodeconfig.NewAddressError("target", err)
	}
	return ip.Addr(), nil
}

// sleepContext waits for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// scanCmd searches the network for nodes
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Search the network for ESP-DMX nodes",
	Long: `Search for ESP-DMX nodes by sending configuration queries.

The primary target is queried first, then the node's access point address,
common broadcast addresses and the multicast group. Every node that answers
is listed with its reported configuration.`,
	Example: `  # Search from the default target
  espdmx-cfg scan

  # Search on the sACN port through a specific interface
  espdmx-cfg scan --sacn --interface wlan0

  # Add hosts found by mDNS to the search
  espdmx-cfg scan --mdns`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanWait, "wait", 2*time.Second, "Time to wait for late replies after the search")
	scanCmd.Flags().BoolVar(&scanMDNS, "mdns", false, "Also query hosts found by mDNS")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, cliListener(os.Stderr, true))
	if err != nil {
		return err
	}
	defer s.Close()

	if scanMDNS || cfg.MDNS.Enabled {
		timeout := time.Duration(cfg.MDNS.Timeout) * time.Second
		fmt.Printf("Browsing mDNS for %s...\n", timeout)
		hosts := s.addMDNSTargets(ctx, timeout)
		fmt.Printf("Found %d mDNS host(s)\n\n", len(hosts))
	}

	fmt.Printf("Searching for ESP-DMX nodes on port %d...\n", s.port)
	if err := s.client.Search(ctx, cfg.Network.Target, s.port); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if err := sleepContext(ctx, scanWait); err != nil {
		return err
	}
	fmt.Println()

	recs := s.registry.List()
	if len(recs) == 0 {
		fmt.Println("No nodes found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the node is powered on")
		fmt.Println("  - Join the node's WiFi network (ESP-DMX-WiFi) if it is in access point mode")
		fmt.Println("  - Try --sacn if the node is configured for sACN")
		fmt.Println("  - Use --interface to select the network the node is on")
		fmt.Println("  - Use --target to query the node's address directly")
		return nil
	}

	fmt.Printf("Found %d node(s):\n\n", len(recs))
	for i, rec := range recs {
		name := cfg.DisplayName(rec.Address(), rec.NodeName())
		fmt.Printf("%d. %s\n", i+1, displayOr(name, "(unnamed)"))
		fmt.Println(indent(nodeconfig.FormatCompact(rec), "   "))
		fmt.Println()
	}

	fmt.Println("Use 'espdmx-cfg show <ip>' to view a node's full configuration")
	fmt.Println("Use 'espdmx-cfg upload <ip>' to change it")

	rememberNodes(s.registry)
	return nil
}

// showCmd displays a node's configuration
var showCmd = &cobra.Command{
	Use:   "show <ip>",
	Short: "Show a node's configuration",
	Long: `Query a node and display the configuration it reports.

The yaml format writes the editable fields, which can be changed and sent
back with 'espdmx-cfg upload --file'. The WiFi password is never printed.`,
	Example: `  # Show the node in access point mode
  espdmx-cfg show 10.110.115.10

  # Save the configuration for editing
  espdmx-cfg show 192.168.1.40 --format yaml > node.yaml

  # JSON output for scripting
  espdmx-cfg show 192.168.1.40 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, yaml, json)")
	showCmd.Flags().DurationVar(&queryTimeout, "timeout", 3*time.Second, "Time to wait for the reply")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	target := args[0]

	s, err := openSession(ctx, cliListener(os.Stderr, false))
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.queryNode(ctx, target, queryTimeout)
	if err != nil {
		return fmt.Errorf("failed to get configuration: %w", err)
	}
	rememberNodes(s.registry)

	out, err := formatRecord(rec, outputFormat)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// formatRecord renders rec in one of the show formats.
func formatRecord(rec *discovery.Record, format string) (string, error) {
	switch format {
	case "compact":
		return nodeconfig.FormatCompact(rec), nil
	case "yaml":
		fields := nodeconfig.FieldsFromPacket(rec.Packet)
		fields.Password = ""
		data, err := yaml.Marshal(&fields)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	case "json":
		data, err := json.MarshalIndent(nodeconfig.FieldsFromPacket(rec.Packet), "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(data), nil
	case "detailed", "":
		return nodeconfig.FormatDetailed(rec), nil
	default:
		return "", fmt.Errorf("unknown format %q (use detailed, compact, yaml or json)", format)
	}
}

// resetCmd restores a node's factory configuration
var resetCmd = &cobra.Command{
	Use:   "reset <ip>",
	Short: "Reset a node to factory defaults",
	Long: `Send a reset request to a node.

The node restores its factory configuration and restarts as an access point
named ESP-DMX-WiFi at 10.110.115.10. You must type the confirmation phrase
unless --yes is given.`,
	Example: `  espdmx-cfg reset 192.168.1.40`,
	Args:    cobra.ExactArgs(1),
	RunE:    runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	target := args[0]
	if !assumeYes && !ui.ResetConfirmation(os.Stdin, os.Stdout, target) {
		fmt.Println("Reset cancelled.")
		return nil
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:     "Reset",
		Command:   "espdmx-cfg reset",
		Params:    []ui.Param{{Key: "Target", Value: target}, {Key: "Port", Value: fmt.Sprint(cfg.Network.Port)}},
		StepNames: []string{"Open socket", "Send reset"},
		Hint:      hintLines,
	})

	err := runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
		onStep(0, ui.StepRunning, "")
		s, err := openSession(ctx, nil)
		if err != nil {
			onStep(0, ui.StepFailed, err.Error())
			return nil, err
		}
		defer s.Close()
		onStep(0, ui.StepComplete, s.engine.LocalAddr().String())

		onStep(1, ui.StepRunning, "")
		if err := s.client.Reset(ctx, target, s.port); err != nil {
			onStep(1, ui.StepFailed, err.Error())
			return nil, err
		}
		onStep(1, ui.StepComplete, "")

		return []ui.Param{
			{Key: "Node", Value: target},
			{Key: "Next", Value: "join ESP-DMX-WiFi and use 10.110.115.10"},
		}, nil
	})
	if err != nil {
		return &shownError{err: err}
	}
	return nil
}

// commandCmd builds a command that sends an ArtAddress command.
func commandCmd(use, short string, command protocol.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <ip>",
		Short: short,
		Long: short + `.

The command is sent as an Art-Net ArtAddress packet to port 6454 whatever
the node's configured protocol.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd.Context(), args[0], command)
		},
	}
}

var (
	cancelMergeCmd = commandCmd("cancel-merge", "Cancel merge mode on a node", protocol.CommandCancelMerge)
	clearOutputCmd = commandCmd("clear-output", "Clear a node's DMX output", protocol.CommandClearOutput)
)

func runCommand(ctx context.Context, target string, command protocol.Command) error {
	s, err := openSession(ctx, cliListener(os.Stderr, false))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.client.SendCommand(ctx, target, command); err != nil {
		return fmt.Errorf("%s failed: %w", command, err)
	}
	fmt.Printf("%s Sent %s to %s\n", ui.SuccessMarker, command, target)
	return nil
}

// defaultsCmd prints the factory configuration
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the factory configuration",
	Long: `Print the configuration a node starts with after a reset.

The yaml format can be edited and uploaded with 'espdmx-cfg upload --file'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case "yaml":
			fields := nodeconfig.DefaultFields()
			fields.Password = ""
			data, err := yaml.Marshal(&fields)
			if err != nil {
				return fmt.Errorf("failed to marshal YAML: %w", err)
			}
			fmt.Print(string(data))
		default:
			fmt.Println(nodeconfig.FormatPacket(protocol.DefaultConfig()))
		}
		return nil
	},
}

func init() {
	defaultsCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, yaml)")
}

// nicknameCmd names a node in listings
var nicknameCmd = &cobra.Command{
	Use:   "nickname <ip> [name]",
	Short: "Set the name shown for a node",
	Long: `Set a nickname shown instead of the node's reported name in scan and
watch listings. The nickname is stored in the config file only; use
'upload --name' to change the name on the node. Omit the name to clear it.`,
	Example: `  espdmx-cfg nickname 192.168.1.40 "Stage left truss"
  espdmx-cfg nickname 192.168.1.40`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := protocol.ParseAddress(args[0])
		if err != nil {
			return nodeconfig.NewAddressError("node", err)
		}
		nickname := ""
		if len(args) == 2 {
			nickname = strings.TrimSpace(args[1])
		}

		cfg.SetNodeNickname(addr.String(), nickname)
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		if nickname == "" {
			fmt.Printf("%s Cleared nickname for %s\n", ui.SuccessMarker, addr)
		} else {
			fmt.Printf("%s %s is now %q\n", ui.SuccessMarker, addr, nickname)
		}
		return nil
	},
}

// hintLines turns an error's troubleshooting hint into result box lines.
func hintLines(err error) []string {
	if nodeconfig.Classify(err).Type == nodeconfig.ErrTypeUnknown {
		return nil
	}
	return ui.HintLines(nodeconfig.GetTroubleshootingHint(err))
}

func displayOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
