// Package logging provides structured logging for the remote configuration
// daemon and its client.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the daemon: connection events, parsed requests,
// written responses and raw byte dumps of what arrived on the wire.
//
// # Log Levels
//
//   - Debug: hex/ascii dumps of received chunks, parser phase changes
//   - Info: connections, requests, responses, actions applied to the device
//   - Warn: malformed requests, timeouts, transport write failures
//   - Error: startup failures, configuration store failures
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// With an empty level the REMOTECONFIG_LOG_LEVEL environment variable is
// consulted; when that is empty too, logging is silent.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
