package comms

import (
	"time"

	"github.com/homelink/homelink-core/internal/connection"
)

// Message is a single payload crossing the contract boundary, outbound via
// SendMessage or inbound as the raw half of a MessageEvent.
type Message struct {
	// ID correlates a request with its response, when the transport
	// supports request/response semantics.
	ID string `json:"id,omitempty"`

	// Topic is the pub/sub routing key.
	Topic string `json:"topic"`

	// Payload is the raw message body.
	Payload []byte `json:"payload"`

	// QoS is the requested delivery guarantee.
	QoS connection.QoS `json:"qos"`

	// Retained asks the broker to keep the message for new subscribers.
	Retained bool `json:"retained"`
}

// EventKind classifies a structured inbound message event.
type EventKind string

// Message event kinds, matching the dispatch chain's topic namespaces.
const (
	// EventWill is a last-will message: a peer disconnected ungracefully.
	EventWill EventKind = "will"

	// EventStatus is a device status report.
	EventStatus EventKind = "status"

	// EventNotification is a generic application notification.
	EventNotification EventKind = "notification"
)

// MessageEvent is one structured event produced by the dispatch chain and
// delivered on the message feed. Exactly one of Will, Status or
// Notification is set, matching Kind.
type MessageEvent struct {
	Kind       EventKind `json:"kind"`
	Topic      string    `json:"topic"`
	ReceivedAt time.Time `json:"received_at"`

	Will         *WillEvent         `json:"will,omitempty"`
	Status       *StatusEvent       `json:"status,omitempty"`
	Notification *NotificationEvent `json:"notification,omitempty"`
}

// WillEvent carries a parsed last-will message.
type WillEvent struct {
	// ClientID is the topic segment after the will prefix, identifying
	// the peer that went offline.
	ClientID string `json:"client_id"`

	// Reason is the UTF-8 payload of the will message.
	Reason string `json:"reason"`
}

// StatusEvent carries a parsed device status payload.
type StatusEvent struct {
	// DeviceID is the topic segment after the status prefix.
	DeviceID string `json:"device_id"`

	// Fields is the decoded JSON object.
	Fields map[string]any `json:"fields"`
}

// NotificationEvent carries a parsed generic notification payload.
type NotificationEvent struct {
	// Channel is the topic segment after the notification prefix.
	Channel string `json:"channel"`

	// Fields is the decoded JSON object.
	Fields map[string]any `json:"fields"`
}

// StateEvent is one connection-state transition delivered on the state feed.
type StateEvent struct {
	State     connection.State `json:"state"`
	Timestamp time.Time        `json:"timestamp"`

	// Err is set when the transition was caused by a failure, such as
	// entering the failed state after exhausting reconnect attempts.
	Err error `json:"-"`
}
