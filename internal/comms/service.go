package comms

import (
	"context"
	"time"

	"github.com/homelink/homelink-core/internal/connection"
)

// Default contract policy. Individual connections override these through
// their Parameters; the defaults apply when a configuration leaves them
// unset.
const (
	// DefaultMaxReconnectAttempts bounds automatic recovery attempts.
	DefaultMaxReconnectAttempts = 3

	// DefaultReconnectInterval is the pause between recovery attempts.
	DefaultReconnectInterval = 5 * time.Second

	// DefaultSendTimeout applies to SendMessage, which delegates to
	// SendMessageWithResponse and discards the response payload.
	DefaultSendTimeout = 30 * time.Second
)

// Config describes one session to establish: broker endpoint, identity,
// optional last-will announcement, and tuning parameters.
type Config struct {
	// Host and Port identify the broker or peer endpoint.
	Host string
	Port int

	// TLS enables transport encryption.
	TLS bool

	// ClientID identifies this client to the broker. When empty the
	// session manager derives one from the identity provider.
	ClientID string

	// Username and Password are optional broker credentials.
	Username string
	Password string

	// CleanSession starts a fresh broker-side session on connect.
	CleanSession bool

	// WillTopic and WillPayload, when set, are announced by the broker on
	// ungraceful disconnect.
	WillTopic   string
	WillPayload []byte

	// Parameters tune timeouts, heartbeat, reconnection and QoS.
	// Zero-valued parameters fall back to the package defaults.
	Parameters connection.Parameters
}

// Normalize fills unset policy fields with the package defaults and
// returns the adjusted copy.
func (c Config) Normalize() Config {
	out := c
	if out.Parameters == (connection.Parameters{}) {
		out.Parameters = connection.DefaultParameters()
		out.Parameters.MaxReconnectAttempts = DefaultMaxReconnectAttempts
		out.Parameters.ReconnectInterval = DefaultReconnectInterval
	}
	return out
}

// Service is the capability set every concrete communication client
// implements. All network operations take a context and return errors from
// the package taxonomy; none of them block event delivery.
type Service interface {
	// Connect establishes the session described by cfg. On failure the
	// error is returned to the caller; no implicit retry is scheduled.
	Connect(ctx context.Context, cfg Config) error

	// Disconnect tears the session down. It is idempotent and cancels any
	// in-flight reconnect or keep-alive activity.
	Disconnect() error

	// Reconnect drops and re-establishes the current session.
	Reconnect(ctx context.Context) error

	// CheckConnection reports whether the session is currently usable.
	CheckConnection() bool

	// SendMessage publishes msg, waiting up to DefaultSendTimeout for the
	// transport to confirm and discarding any response payload.
	SendMessage(ctx context.Context, msg Message) error

	// SendMessageWithResponse publishes msg and waits up to timeout for a
	// correlated response.
	SendMessageWithResponse(ctx context.Context, msg Message, timeout time.Duration) (Message, error)

	// Subscribe adds topics to the live subscription set.
	Subscribe(ctx context.Context, topics ...string) error

	// Unsubscribe removes topics from the live subscription set.
	Unsubscribe(ctx context.Context, topics ...string) error

	// UpdateConfiguration replaces the session configuration. The new
	// values apply from the next connect.
	UpdateConfiguration(cfg Config) error

	// Diagnostics returns an on-demand snapshot of the session.
	Diagnostics() Diagnostics

	// Statistics returns the current cumulative statistics.
	Statistics() connection.Statistics

	// ResetStatistics zeroes the cumulative statistics.
	ResetStatistics()

	// StateEvents subscribes to connection-state transitions. The latest
	// state is replayed on subscription. Call cancel to detach.
	StateEvents() (<-chan StateEvent, func())

	// MessageEvents subscribes to structured inbound message events.
	// No replay. Call cancel to detach.
	MessageEvents() (<-chan MessageEvent, func())
}

// Diagnostics is an on-demand snapshot of a session's observable state.
type Diagnostics struct {
	State         connection.State      `json:"state"`
	Broker        string                `json:"broker"`
	ClientID      string                `json:"client_id"`
	Subscriptions []string              `json:"subscriptions"`
	Uptime        time.Duration         `json:"uptime"`
	LastError     string                `json:"last_error,omitempty"`
	Quality       connection.Quality    `json:"quality"`
	Statistics    connection.Statistics `json:"statistics"`
	GeneratedAt   time.Time             `json:"generated_at"`
}
