// Package logging provides structured logging for goveeplug.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the engine. It provides both general logging
// functions and specialized functions for protocol-specific logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (frame hex dumps, advertisements, acks)
//   - Info: Normal operations (connections, sessions, pairing results)
//   - Warn: Non-fatal issues (connect retries, unexpected frames)
//   - Error: Fatal issues (session failures, write errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Session started",
//	    zap.String("address", "A4:C1:38:5A:12:34"),
//	    zap.String("model", "H5082"),
//	    zap.Int("batch", 3),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
// Connection Logging:
//
//	logging.LogConnection(address, "connected")
//	logging.LogConnection(address, "auth_ready")
//	logging.LogConnection(address, "disconnected")
//
// Frame Logging:
//
//	logging.LogFrame(address, "sent", frame)
//	logging.LogFrame(address, "received", frame)
//
// # Configuration
//
// Logging is silent by default so the library never surprises CLI users.
// Set GOVEEPLUG_LOG_LEVEL=debug (or info/warn/error) to enable output, or
// initialize explicitly:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Output Format
//
// Logs are written to stderr in console format so they never interleave with
// command output on stdout:
//
//	2025-11-25T10:30:45.123-0800  INFO  Connection event
//	  address=A4:C1:38:5A:12:34
//	  event=connected
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
