package session

import (
	"context"
	"sort"
	"time"
)

// Record is the minimal persisted state needed to resume a session after a
// restart. It is owned exclusively by the Manager; the Store is a passive
// collaborator.
type Record struct {
	Host          string    `json:"host"`
	Port          int       `json:"port"`
	Topics        []string  `json:"topics"`
	LastConnected time.Time `json:"last_connected"`
}

// normalized returns a copy with the topic set sorted and deduplicated, so
// persisted records compare stably.
func (r Record) normalized() Record {
	out := r
	seen := make(map[string]struct{}, len(r.Topics))
	out.Topics = make([]string, 0, len(r.Topics))
	for _, t := range r.Topics {
		if _, dup := seen[t]; dup || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out.Topics = append(out.Topics, t)
	}
	sort.Strings(out.Topics)
	return out
}

// Store persists the session record. Save replaces the previous record;
// Load returns nil when no record has been saved.
//
// Implementations may block; the Manager always calls them with a context.
type Store interface {
	Save(ctx context.Context, record Record) error
	Load(ctx context.Context) (*Record, error)
}

// Transport is the wire-level adapter driven by the Manager. Concrete
// implementations (the MQTT adapter in internal/transport/mqtt) translate
// these calls to their protocol.
type Transport interface {
	// Connect establishes the transport session.
	Connect(ctx context.Context, cfg TransportConfig) error

	// Disconnect tears the transport session down.
	Disconnect() error

	// Publish sends a payload to a topic.
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error

	// Subscribe registers interest in topics; inbound payloads arrive via
	// the receive callback passed at Connect.
	Subscribe(ctx context.Context, topics ...string) error

	// Unsubscribe removes interest in topics.
	Unsubscribe(ctx context.Context, topics ...string) error

	// CheckLiveness reports whether the session is still alive.
	CheckLiveness(ctx context.Context) bool
}

// TransportConfig is the subset of session configuration a transport needs,
// plus the inbound delivery callback.
type TransportConfig struct {
	Host           string
	Port           int
	TLS            bool
	ClientID       string
	Username       string
	Password       string
	CleanSession   bool
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	WillTopic      string
	WillPayload    []byte
	QoS            byte

	// OnMessage delivers every inbound payload. It must not be nil once
	// subscriptions exist.
	OnMessage func(topic string, payload []byte)
}

// Identity supplies the caller's identity for client-id construction and
// broker authentication. Implemented outside the core (internal/identity).
type Identity interface {
	UserID() string
	AccessToken() string
}

// NetworkMonitor emits reachability changes: true when the network became
// reachable, false when it was lost. Implemented outside the core.
type NetworkMonitor interface {
	Events() <-chan bool
}
