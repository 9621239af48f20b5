package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lxdmxwifi/espdmx/internal/config"
	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/logging"
	"github.com/lxdmxwifi/espdmx/internal/nodeconfig"
	"github.com/lxdmxwifi/espdmx/internal/ui"
)

// Upload flags
var (
	uploadFile     string
	uploadDefaults bool
	uploadVerify   bool
	uploadRetries  int
	uploadNoBackup bool
	uploadFields   fieldFlags
)

// Upload steps
const (
	stepOpen = iota
	stepRead
	stepBuild
	stepUpload
	stepVerify
)

var uploadCmd = &cobra.Command{
	Use:   "upload <ip>",
	Short: "Upload a new configuration to a node",
	Long: `Upload configuration to a node.

By default the node's current configuration is read and the flags change
individual fields. Use --file to start from a YAML file written by
'espdmx-cfg show --format yaml', or --defaults to start from the factory
configuration. When the current configuration is read, a copy is saved in
the backups directory next to the config file first.

Station mode needs the WiFi network name and password. The password is
never read back from the node; pass --password or set ESPDMX_WIFI_PASSWORD.`,
	Example: `  # Join a venue network with DHCP
  espdmx-cfg upload 10.110.115.10 --mode station --ssid Venue --password secret

  # Switch a node to sACN universe 12
  espdmx-cfg upload 192.168.1.40 --protocol sacn --universe 12 --verify

  # Upload an edited file
  espdmx-cfg show 192.168.1.40 --format yaml > node.yaml
  espdmx-cfg upload 192.168.1.40 --file node.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	fs := uploadCmd.Flags()
	fs.StringVarP(&uploadFile, "file", "f", "", "YAML file with node fields")
	fs.BoolVar(&uploadDefaults, "defaults", false, "Start from the factory configuration")
	fs.BoolVar(&uploadVerify, "verify", false, "Query the node afterwards and compare")
	fs.IntVar(&uploadRetries, "retries", 3, "Number of verification retries")
	fs.DurationVar(&queryTimeout, "timeout", 3*time.Second, "Time to wait for the current configuration")
	fs.BoolVar(&uploadNoBackup, "no-backup", false, "Do not save the node's current configuration before uploading")
	uploadFields.register(fs)
	uploadCmd.MarkFlagsMutuallyExclusive("file", "defaults")
}

func runUpload(cmd *cobra.Command, args []string) error {
	target := args[0]

	source := "node"
	switch {
	case uploadFile != "":
		source = uploadFile
	case uploadDefaults:
		source = "factory defaults"
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Upload",
		Command: "espdmx-cfg upload",
		Params: []ui.Param{
			{Key: "Target", Value: target},
			{Key: "Port", Value: fmt.Sprint(cfg.Network.Port)},
			{Key: "Source", Value: source},
		},
		StepNames: []string{"Open socket", "Read current configuration", "Build packet", "Upload", "Verify"},
		Hint:      hintLines,
	})

	err := runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
		return upload(ctx, cmd, target, onStep)
	})
	if err != nil {
		return &shownError{err: err}
	}
	return nil
}

func upload(ctx context.Context, cmd *cobra.Command, target string, onStep ui.StepCallback) ([]ui.Param, error) {
	fail := func(step int, err error) ([]ui.Param, error) {
		onStep(step, ui.StepFailed, nodeconfig.GetShortErrorMessage(err))
		return nil, err
	}

	onStep(stepOpen, ui.StepRunning, "")
	s, err := openSession(ctx, cliListener(os.Stderr, false))
	if err != nil {
		return fail(stepOpen, err)
	}
	defer s.Close()
	onStep(stepOpen, ui.StepComplete, s.engine.LocalAddr().String())

	var fields nodeconfig.Fields
	var backup string
	switch {
	case uploadFile != "":
		onStep(stepRead, ui.StepSkipped, "using "+uploadFile)
		if fields, err = loadFieldsFile(uploadFile); err != nil {
			return fail(stepBuild, err)
		}
	case uploadDefaults:
		onStep(stepRead, ui.StepSkipped, "using factory defaults")
		fields = nodeconfig.DefaultFields()
	default:
		onStep(stepRead, ui.StepRunning, "")
		rec, err := s.queryNode(ctx, target, queryTimeout)
		if err != nil {
			return fail(stepRead, err)
		}
		fields = nodeconfig.FieldsFromPacket(rec.Packet)
		onStep(stepRead, ui.StepComplete, nodeconfig.Summary(rec))
		if !uploadNoBackup {
			backup = saveBackup(rec)
		}
	}

	onStep(stepBuild, ui.StepRunning, "")
	if err := uploadFields.apply(cmd.Flags(), &fields); err != nil {
		return fail(stepBuild, err)
	}
	pkt, err := fields.Packet()
	if err != nil {
		return fail(stepBuild, err)
	}
	onStep(stepBuild, ui.StepComplete, nodeconfig.FormatAddressing(pkt))

	onStep(stepUpload, ui.StepRunning, "")
	if err := s.client.UploadPacket(ctx, pkt, target, s.port); err != nil {
		return fail(stepUpload, err)
	}
	onStep(stepUpload, ui.StepComplete, "")

	details := []ui.Param{
		{Key: "Node", Value: target},
		{Key: "Name", Value: pkt.NodeName},
		{Key: "Mode", Value: pkt.Mode.String()},
		{Key: "Addressing", Value: nodeconfig.FormatAddressing(pkt)},
	}

	if backup != "" {
		details = append(details, ui.Param{Key: "Backup", Value: backup})
	}

	if !uploadVerify {
		onStep(stepVerify, ui.StepSkipped, "use --verify to check")
		return details, nil
	}

	onStep(stepVerify, ui.StepRunning, "")
	opts := nodeconfig.DefaultVerificationOptions()
	opts.MaxRetries = uploadRetries
	result := s.client.Verify(ctx, s.registry, pkt, target, s.port, opts)
	if !result.Success {
		return fail(stepVerify, fmt.Errorf("verification failed after %d attempt(s): %w", result.Attempts, result.Error))
	}
	onStep(stepVerify, ui.StepComplete, fmt.Sprintf("%d attempt(s)", result.Attempts))
	details = append(details, ui.Param{Key: "Verified", Value: result.Actual.ReceivedAt.Format(time.TimeOnly)})
	return details, nil
}

// saveBackup stores the node's configuration before it is replaced. A
// failed backup is logged and does not stop the upload.
func saveBackup(rec *discovery.Record) string {
	dir, err := config.GetConfigDir()
	if err != nil {
		logging.Warn("No backup directory", zap.Error(err))
		return ""
	}
	path, err := nodeconfig.NewSnapshotStore(filepath.Join(dir, "backups")).Save(rec, "Configuration before upload")
	if err != nil {
		logging.Warn("Backup failed", zap.Error(err))
		return ""
	}
	return path
}
