// Midea-bridge exposes Midea air conditioners on an account as climate
// entities over MQTT, a REST API and a WebSocket stream.
//
// Every entity reconciles the state persisted by the previous run with what
// the cloud reports, so a restart never forgets the mode or setpoint a user
// last chose.
//
// Usage:
//
//	midea-bridge serve [--config path]
//	midea-bridge migrate up|down|status
//	midea-bridge devices list
//	midea-bridge token --subject ops
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
