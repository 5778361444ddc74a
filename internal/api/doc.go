// Package api provides the HTTP REST API and WebSocket server for Foundry
// Core.
//
// It exposes machine registry operations (placement, recipes, port
// logistics), catalog browsing, simulation clock control, blueprint
// import/export and the audit trail to operator tooling, plus a WebSocket
// hub for real-time state and clock broadcasts.
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread safety: all methods are safe for concurrent use from multiple
// goroutines. Mutations funnel through the machine registry, which
// serialises them against the simulation tick.
package api
