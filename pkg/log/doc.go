// Package log provides structured protocol capture for ONVIF exchanges.
//
// This package defines the Logger interface and Event types for recording
// every SOAP exchange a session performs, plus lifecycle state changes and
// transport errors. It is separate from operational logging (slog): protocol
// capture produces a complete machine-readable trace for debugging devices
// that misbehave in the field.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: mirror events into slog
//	cfg.Capture = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Capture, _ = log.NewFileLogger("/var/log/onvif/camera.ovlog")
//
//	// Both: use MultiLogger
//	cfg.Capture = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Exchange: one HTTP round trip (action, status, RTT, payloads)
//   - StateChange: session and subscription worker lifecycle
//   - Error: failures outside a completed exchange
//
// # File Format
//
// Log files use CBOR encoding with integer keys and the .ovlog extension.
// The onvif-log CLI tool provides viewing, filtering, and export.
package log
