// Package api implements the local HTTP and WebSocket surface for HomeLink Core.
//
// This package provides:
//   - REST endpoints for connection diagnostics, statistics, and message publish
//   - WebSocket hub relaying connection-state transitions and inbound message
//     events to connected clients in real time
//   - Middleware stack (request ID, logging, recovery, CORS, body size limits)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between local user interfaces (wall panels, the mobile
// app in LAN mode, diagnostics tooling) and the session manager. Reads are
// served from the connection aggregate's snapshots; publishes flow through the
// session manager to the broker; state and message events flow back via the
// manager's feeds and are broadcast to WebSocket clients.
//
// # Graceful Degradation
//
// The server operates while the session is disconnected: diagnostics and
// statistics still read, only message publishes fail with 503.
package api
