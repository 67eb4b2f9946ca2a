// Package api provides the HTTP REST API and WebSocket server for the IoT
// admin core.
//
// It exposes the object tree, smart-name editing, voice-assistant device
// browsing, adapter commands and mobile-app intake to the admin UI, and
// pushes live state changes over a WebSocket.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Every route except /api/v1/health requires a bearer token issued by the
// auth package. The WebSocket accepts the token as a query parameter.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
