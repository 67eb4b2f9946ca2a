// Package logging provides structured logging for the IoT admin core.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("smart name updated", "id", id)
//	logger.Error("failed to connect", "error", err)
//
// Never log secrets, tokens or passwords.
package logging
