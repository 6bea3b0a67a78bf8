// Package comms defines the protocol-agnostic communication contract for
// HomeLink Core.
//
// Every concrete client (the MQTT session manager today, BLE or cloud
// sessions tomorrow) implements the Service interface: connect lifecycle,
// message send with optional response, topic subscription management, and
// on-demand diagnostics/statistics snapshots.
//
// Two independent broadcast feeds expose what the session is doing:
//   - StateFeed carries connection-state transitions and replays the latest
//     value to new subscribers, so late consumers always know the current
//     state.
//   - MessageFeed carries structured inbound message events and is
//     broadcast-only (no replay).
//
// Delivery within a feed is FIFO; no ordering holds across the two feeds.
// Publishing never blocks: a subscriber that stops draining its channel
// loses events rather than stalling the session.
//
// Errors crossing the contract boundary are classified into the Error
// taxonomy, each kind carrying a stable numeric code and a retryability
// flag so callers can decide whether to retry without string matching.
package comms
