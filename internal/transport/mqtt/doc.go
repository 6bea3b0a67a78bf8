// Package mqtt adapts paho.mqtt.golang to the session.Transport contract.
//
// The adapter is deliberately thin: it translates connect/publish/subscribe
// calls to the wire and delivers inbound payloads through the callback
// supplied at connect time. Reconnection policy, subscription restoration
// and presence announcements live in the session manager, so the paho
// client runs with its own auto-reconnect disabled.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Inbound handlers run on paho's delivery goroutines with panic recovery.
package mqtt
