// Package ui provides terminal UI components for the espdmx-cfg CLI.
//
// Components are rendered with Lipgloss. Most commands follow a "run once
// and exit" pattern:
//
//   - Header: command banner showing the operation and its parameters
//   - Steps: step list with a progress bar for upload and verify
//   - Result: success, warning and failure boxes with troubleshooting tips
//
// Runner ties these together: it prints the header, reports steps as the
// operation calls back, and finishes with a result box.
//
// The watch command is the one interactive screen. WatchModel is a Bubble
// Tea model that shows the discovery registry as a table and follows search
// progress with a spinner. The caller feeds it RegistryChangedMsg,
// SearchProgressMsg and SearchDoneMsg through tea.Program.Send.
//
// # Logging Integration
//
// zap logging is silent unless ESPDMX_LOG_LEVEL is set, so log lines do not
// tear the rendered output.
package ui
