package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/homelink/homelink-core/internal/comms"
)

// Topic prefixes routed by the default chain. Everything else is dropped.
const (
	// TopicPrefixWill carries last-will messages from ungracefully
	// disconnected peers.
	TopicPrefixWill = "w/"

	// TopicPrefixStatus carries JSON device status payloads.
	TopicPrefixStatus = "status/"

	// TopicPrefixNotification carries JSON application notifications.
	TopicPrefixNotification = "msg/"
)

// NewDefaultChain builds the standard inbound routing chain:
//
//	w/...      -> will event (UTF-8 text payload)
//	status/... -> status event (JSON object payload)
//	msg/...    -> notification event (JSON object payload)
//
// Parsed events are delivered through emit.
func NewDefaultChain(emit Emit, opts ...Option) *Chain {
	return NewChain([]Entry{
		{
			Name:    "will",
			Matches: PrefixPredicate(TopicPrefixWill),
			Handle:  willHandler(emit),
		},
		{
			Name:    "status",
			Matches: PrefixPredicate(TopicPrefixStatus),
			Handle:  statusHandler(emit),
		},
		{
			Name:    "notification",
			Matches: PrefixPredicate(TopicPrefixNotification),
			Handle:  notificationHandler(emit),
		},
	}, opts...)
}

// willHandler parses UTF-8 will payloads.
func willHandler(emit Emit) Handler {
	return func(topic string, payload []byte) error {
		if !utf8.Valid(payload) {
			return fmt.Errorf("will payload is not valid UTF-8")
		}

		emit(comms.MessageEvent{
			Kind:       comms.EventWill,
			Topic:      topic,
			ReceivedAt: time.Now().UTC(),
			Will: &comms.WillEvent{
				ClientID: strings.TrimPrefix(topic, TopicPrefixWill),
				Reason:   string(payload),
			},
		})
		return nil
	}
}

// statusHandler parses JSON device status payloads.
func statusHandler(emit Emit) Handler {
	return func(topic string, payload []byte) error {
		fields, err := decodeObject(payload)
		if err != nil {
			return fmt.Errorf("status payload: %w", err)
		}

		emit(comms.MessageEvent{
			Kind:       comms.EventStatus,
			Topic:      topic,
			ReceivedAt: time.Now().UTC(),
			Status: &comms.StatusEvent{
				DeviceID: strings.TrimPrefix(topic, TopicPrefixStatus),
				Fields:   fields,
			},
		})
		return nil
	}
}

// notificationHandler parses JSON notification payloads.
func notificationHandler(emit Emit) Handler {
	return func(topic string, payload []byte) error {
		fields, err := decodeObject(payload)
		if err != nil {
			return fmt.Errorf("notification payload: %w", err)
		}

		emit(comms.MessageEvent{
			Kind:       comms.EventNotification,
			Topic:      topic,
			ReceivedAt: time.Now().UTC(),
			Notification: &comms.NotificationEvent{
				Channel: strings.TrimPrefix(topic, TopicPrefixNotification),
				Fields:  fields,
			},
		})
		return nil
	}
}

// decodeObject unmarshals a payload that must be a JSON object.
func decodeObject(payload []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("payload is not a JSON object")
	}
	return fields, nil
}
