// Package session implements the reconnecting session manager: the concrete
// communication service behind the comms.Service contract.
//
// The Manager owns the connection state machine:
//
//	disconnected --Connect--> connecting --success--> connected
//	connected --probe failure--> reconnecting --success--> connected
//	reconnecting --attempts exhausted--> failed
//	any state --Disconnect--> disconnected
//
// It drives an injected Transport adapter, persists a small session record
// (host, port, subscribed topics, last connect time) through an injected
// Store after every state-affecting operation, and routes inbound payloads
// through a dispatch chain onto the message feed.
//
// # Lifecycle rules
//
//   - Connect is guarded against concurrent re-entry; a second caller gets
//     ErrConnectInProgress instead of racing the first.
//   - A periodic keep-alive probe runs only while connected and is cancelled
//     on every exit path; a failed probe starts the bounded reconnect loop.
//   - Disconnect is idempotent: it cancels the probe and any in-flight
//     reconnect, clears the live topic set, and persists the cleared record.
//   - Unsubscribing the last remaining topic collapses into a full
//     Disconnect.
//   - Restore, called once at startup, loads the persisted record and
//     re-subscribes to its topics, which implicitly drives a connect.
//
// All blocking work happens on the caller's goroutine or a dedicated probe
// goroutine; the state and message feeds are never blocked by callers.
package session
