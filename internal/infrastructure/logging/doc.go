// Package logging provides structured logging for the Midea bridge.
//
// It wraps log/slog so every record carries the service name and build
// version, and the output format follows configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("bridge started", "climates", 2)
//
// Never log cloud credentials or tokens.
package logging
