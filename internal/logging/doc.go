// Package logging provides structured logging for espdmx.
//
// The package wraps a zap logger with package-level helpers. Logging is silent
// unless a level is given on the command line or through ESPDMX_LOG_LEVEL, so
// the CLI prints nothing but its own output by default.
//
// # Log Levels
//
//   - Debug: packet dumps, decode rejects, receive timeouts
//   - Info: engine start/stop, discovered nodes, search progress
//   - Warn: send failures, interface lookup misses
//   - Error: bind failures and other fatal conditions
//
// # Usage
//
//	if err := logging.Initialize("debug"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
//	logging.Info("Node discovered",
//	    zap.String("addr", "10.110.115.10"),
//	    zap.String("name", "stage-left"),
//	)
//
// Raw datagrams are logged with LogPacket, which is a no-op unless debug
// output is enabled:
//
//	logging.LogPacket("received", src.String(), buf[:n])
//
// All functions are safe for concurrent use.
package logging
