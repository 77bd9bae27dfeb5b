// Package api implements the HTTP REST API and WebSocket server for the
// Midea climate bridge.
//
// This package provides:
//   - REST endpoints to read climate entities, send commands and list history
//   - WebSocket hub broadcasting climate.state_changed events, filterable per
//     climate and replaying the last known state to new subscribers
//   - Prometheus exposition on /metrics
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// Reads are public. When api.auth.jwt_secret is set, the command endpoint
// requires a bearer token carrying the climate:control scope (see package auth).
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Graceful Degradation
//
// The server operates without state history or metrics; those endpoints
// answer 503 or are not mounted.
package api
